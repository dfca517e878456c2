package usecase

const itemExtractionPrompt = `You are a fashion product analyst. Identify every distinct clothing
and accessory item visible in this flat-lay image.

Return a strict JSON array, one object per physical item, with keys:
piece_type (string), description (string, shopping oriented),
bounding_box (object with x, y, width, height, all normalized to [0,1]),
confidence (number from 0 to 1), color (string), pattern (string),
style (string).

Rules:
- Paired wearables (shoes, earrings, gloves, socks) are ONE physical item.
  Report the pair as a single entry, never two.
- Use "unknown" for attributes you cannot determine.
- No markdown, no prose outside the JSON array.`

const itemCropPrompt = `Produce a cropped product image of just this single item from the
image: %s.
Isolate the item on a clean white background, product-photo style. Return
the image inline. Do not add text.`

// Alternate wording used for one retry when the model answers with text
// instead of an inline image.
const itemCropRetryPrompt = `Crop the region of this image that contains the %s and return only
that region as an inline image with the background removed.`

const flatLayPrompt = `Convert this outfit photo into a flat lay: every garment and accessory
laid flat on a clean neutral background, product-catalog style, nothing
else in frame. Return the image inline.`
