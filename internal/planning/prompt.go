package planning

import (
	"fmt"
	"strings"
)

const exampleScenePrompt = `Use the face and body of Figure 2 at 100%. Place the product of Figure 1 exactly as is, without modification. Ultra-realistic vertical 9:16 portrait. The model from Figure 2 stands in a contemporary street at sunrise, minimalist architecture in pale concrete and smoked glass, low golden light. She wears a luxury athleisure silhouette: long fluid sand-beige coat, ecru second-skin top, wide chocolate tailored trousers. On her feet or in her hands, the product of Figure 1 copied exactly - same color, same texture, same shape, no modification. Calm, elegant, urban atmosphere, cinematic depth of field.`

// BuildInstruction renders the art-direction instruction sent ahead of the images.
func BuildInstruction(req Request) string {
	personaDetails := strings.TrimSpace(req.PersonaDescription)
	if personaDetails == "" {
		personaDetails = "no additional details"
	}
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		brief = "free interpretation, timeless luxury"
	}

	var b strings.Builder
	b.WriteString("You are an art director specialised in luxury fashion and high-end advertising photography.\n\n")

	b.WriteString("ANALYSE THE PROVIDED IMAGES:\n")
	b.WriteString("- IMAGE 1 (Figure 1): the luxury product to showcase. MEMORISE EVERY DETAIL (exact color, texture, shape, materials).\n")
	b.WriteString("- IMAGE 2 (Figure 2): the model. MEMORISE her face, hairstyle, head angle and expression.\n\n")

	fmt.Fprintf(&b, "GENERATE %d luxury advertising campaign scenes.\n\n", req.SceneCount)
	fmt.Fprintf(&b, "Model details: %s\n", personaDetails)
	fmt.Fprintf(&b, "Creative direction: %s\n\n", brief)

	b.WriteString("CRITICAL RULES FOR EVERY PROMPT:\n")
	b.WriteString("1. The model must have EXACTLY the same face, head angle and hairstyle as the reference photo (Figure 2).\n")
	b.WriteString("2. The product must remain STRICTLY IDENTICAL to the original photo (Figure 1): same color, same texture, same shape, NO modification.\n")
	b.WriteString("3. Format: ultra-realistic vertical 9:16 portrait.\n")
	b.WriteString("4. Describe: luxurious setting, architecture, light, coherent outfit, atmosphere.\n\n")

	b.WriteString("CRITICAL INSTRUCTION FOR THE IMAGE MODEL:\n")
	b.WriteString("- Figure 1 = the product EXACTLY as is, copied at 100%.\n")
	b.WriteString("- Figure 2 = the model, COPY HER FACE and BODY SHAPE at 100%.\n\n")

	b.WriteString("EXAMPLE OF A PERFECT PROMPT:\n")
	b.WriteString(`"` + exampleScenePrompt + `"` + "\n\n")

	b.WriteString("RETURN VALID JSON:\n")
	b.WriteString(`{
  "productType": "bag" | "shoe" | "dress" | "jewelry" | "watch" | "glasses" | "accessory",
  "scenes": [
    {
      "id": 1,
      "title": "Short evocative title",
      "prompt_image": "Complete prompt following the rules above, at least 100 words",
      "prompt_video": "Slow camera movement, ambience, 5s, cinematic 4K",
      "isPackshot": false
    }
  ]
}`)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Return exactly %d scenes. The last scene must be an isolated product packshot (isPackshot: true, empty prompt_video). No other scene is a packshot.", req.SceneCount)

	return b.String()
}
