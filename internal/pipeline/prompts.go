package pipeline

// Prompt templates for the model-backed stages. Placeholders are filled
// with fmt.Sprintf; keep the %s order in sync with the call sites.

const briefExtractionPrompt = `You are preparing a personalized children's book order for production.
Extract the production brief from the customer's request below. Respond with a JSON object
containing: child_name, child_age, theme, setting, tone, special_details (array of strings).

Customer request:
%s`

const storyOutlinePrompt = `You are a children's book author. Using the production brief below,
write a story outline for a reading age of %d: a title, the emotional arc, and a short
paragraph per story beat. Keep the language suitable for the reading age.

Production brief:
%s`

const childAnalysisPrompt = `Describe the child in this reference photo for an illustrator:
hair, eyes, skin tone, build, and any distinctive features. Two or three sentences,
no names, no judgements.`

const locationAnalysisPrompt = `Describe this location reference photo for an illustrator:
architecture or landscape, colors, lighting, season, and mood. Two or three sentences.`

const sceneBreakdownPrompt = `Break the story outline below into individual book pages for a
reading age of %d. Respond with a JSON object: {"title": string, "pages": [{"text": string,
"scene": string}]}. "text" is the story text printed on the page; "scene" is the illustration
prompt for that page, written for an image model. Aim for %d pages.

Story outline:
%s`

const interiorPagePrompt = `Children's book illustration, warm and friendly, full-bleed page art
with no text or lettering anywhere in the image.

Scene: %s

The main child character: %s

The setting: %s`

const coverFrontPrompt = `Children's book front cover illustration, warm and inviting, full-bleed
art with no text or lettering anywhere in the image. The cover should capture the heart of
this story:

%s

The main child character: %s`

const visionScorePrompt = `Rate this children's book illustration for print quality on a scale
of 1 to 10. Consider composition, whether limbs and faces are well-formed, and whether any
text or lettering leaked into the image (an automatic fail, score 1). Respond with only the
integer score.`

const overlayPositionPrompt = `This illustration will have a text band overlaid on it. Which
placement covers the least important part of the image? Respond with exactly one of:
b, t, tl, tr, bl, br.`

// sceneBreakdownSchema validates the scene breakdown stage output.
const sceneBreakdownSchema = `{
  "type": "object",
  "required": ["title", "pages"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "pages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["text", "scene"],
        "properties": {
          "text": {"type": "string"},
          "scene": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`
