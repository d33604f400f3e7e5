package generator

import (
	"fmt"
	"strings"

	"github.com/maauso/charactercast-api/internal/character"
	"github.com/maauso/charactercast-api/internal/llm"
)

// Script completion limits.
const (
	scriptMaxTokens   = 500
	scriptTemperature = 0.7
)

const scriptPreamble = "You are an expert scriptwriter specializing in creating humorous, educational, and engaging podcast scripts. " +
	"Your task is to write a 1-2 minute entertaining monologue from the perspective of "

// ScriptPrompt builds the persona prompt for the script stage.
func ScriptPrompt(t character.Type, attrs character.Attributes, topic string) llm.Prompt {
	var b strings.Builder
	b.WriteString(scriptPreamble)

	switch t {
	case character.TypeBaby:
		fmt.Fprintf(&b, "a %s baby with %s hair.\n", attrs[character.AttrEthnicity], attrs[character.AttrBabyHair])
		b.WriteString("The monologue should be in first person with cute baby mispronunciations and simple vocabulary, focusing on the topic provided.\n")
		b.WriteString("Make it adorable, innocent, and funny - as if a baby is attempting to explain a complex topic.")
		b.WriteString("\n\nThe monologue should be from the perspective of a baby but in Joe Rogan's style - imagine Joe Rogan pretending to be a baby while still sounding like himself.")
	case character.TypeAnimal:
		fmt.Fprintf(&b, "a %s %s.\n", attrs[character.AttrTrait], attrs[character.AttrSpecies])
		b.WriteString("The monologue should incorporate animal-specific mannerisms, perspectives, and references related to the species.\n")
		b.WriteString("Make it both humorous and informative, with the animal bringing its unique point of view to the topic.")
		fmt.Fprintf(&b, "\n\nThe monologue should be from the perspective of a %s but in Joe Rogan's style - imagine Joe Rogan taking on the personality of this animal while still sounding like himself.", attrs[character.AttrSpecies])
	case character.TypeHistorical:
		fmt.Fprintf(&b, "a %s era %s historical figure.\n", attrs[character.AttrEra], attrs[character.AttrNationality])
		b.WriteString("Use period-appropriate language, references, and viewpoints while still making it accessible to modern audiences.\n")
		b.WriteString("The historical figure should bring their unique perspective to the contemporary topic, creating both humor and insight.")
		fmt.Fprintf(&b, "\n\nThe monologue should be from the perspective of a %s %s era figure, with period-appropriate references while maintaining Joe Rogan's style.", attrs[character.AttrNationality], attrs[character.AttrEra])
	default:
		fmt.Fprintf(&b, "%s.\n", character.Describe(t, attrs))
		b.WriteString("The monologue should be in the first person and focus on the topic provided.")
	}

	user := fmt.Sprintf("Generate a podcast-style monologue in the style of Joe Rogan, discussing the topic of %s. "+
		"Ensure the tone is casual, intense, and slightly conspiratorial, with tangents, unexpected analogies, "+
		"and the characteristic Joe Rogan style of pondering deep existential questions.\n\n"+
		"Avoid line breaks, special characters, or formatting. Keep it flowing naturally as if it's a segment from a podcast episode. "+
		"Keep the entire monologue to about 500 characters.", topic)

	return llm.Prompt{
		System:      b.String(),
		User:        user,
		MaxTokens:   scriptMaxTokens,
		Temperature: scriptTemperature,
	}
}

// ImagePrompt builds the image generation prompt for a persona.
func ImagePrompt(t character.Type, attrs character.Attributes) string {
	switch t {
	case character.TypeBaby:
		return fmt.Sprintf("Generate a high resolution image of a very cute chubby %s hair %s baby wearing large over-ear headphones "+
			"speaking into a professional podcast microphone. The baby should be sitting in a professional podcast studio "+
			"with appropriate lighting and background.", attrs[character.AttrBabyHair], attrs[character.AttrEthnicity])
	case character.TypeAnimal:
		return fmt.Sprintf("Generate a high resolution image of a %s %s wearing headphones in a podcast studio setup. "+
			"The animal should be positioned in front of a professional microphone with proper studio lighting "+
			"and podcast equipment visible in the background.", attrs[character.AttrTrait], attrs[character.AttrSpecies])
	case character.TypeHistorical:
		return fmt.Sprintf("Generate a high resolution image of a %s historical figure from the %s era sitting at a podcast setup "+
			"with headphones and a professional microphone. Include period-appropriate elements while maintaining "+
			"the modern podcast studio environment with proper lighting.", attrs[character.AttrNationality], attrs[character.AttrEra])
	default:
		return fmt.Sprintf("Generate a high-quality, photorealistic portrait of %s in a professional podcast studio "+
			"with headphones and microphone. The character should be centered in the frame with good lighting.",
			character.Describe(t, attrs))
	}
}

// VideoPrompt describes the expression and motion of the talking video.
func VideoPrompt(t character.Type, topic string) string {
	label := character.Label(t)
	if strings.TrimSpace(topic) == "" {
		return fmt.Sprintf("A %s character speaking naturally to the camera with appropriate facial expressions and subtle head movements.", label)
	}
	return fmt.Sprintf("A %s character talking about %s. Natural facial expressions, appropriate head movements, making eye contact with the camera.", label, topic)
}
