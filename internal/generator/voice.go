package generator

import "github.com/maauso/charactercast-api/internal/character"

// DefaultVoice is used for babies and any unmapped persona.
const DefaultVoice = "BtWabtumIemAotTjP5sk"

var animalVoices = map[string]string{
	"Dog":      "XrExE9yKIg1WjnnlVkGX",
	"Cat":      "z9fAnlkpzviPz146aGWa",
	"Elephant": "g5CIjZEefAph4nQFvHAz",
	"Lion":     "VR6AewLTigWG4xSOukaG",
	"Monkey":   "ErXwobaYiN019PkySvjV",
	"Penguin":  "MF3mGyEYCl7XYWbV9V6O",
}

var eraVoices = map[string]string{
	"Ancient":     "TxGEqnHWrfWFTfGW9XjX",
	"Medieval":    "AZnzlk1XvdvUeBnXmlld",
	"Renaissance": "1tNePSElFnDmAyDqkLSY",
	"Industrial":  "ODq5zmih8GkE1Yx5CZz6",
	"Modern":      "SOYHLrjzK2X1ezoPC6cr",
}

// SelectVoice maps a persona to a speech voice. Animals are keyed by species
// and default to the dog voice; historical figures are keyed by era and
// default to the modern voice. Babies always use DefaultVoice.
func SelectVoice(t character.Type, attrs character.Attributes) string {
	switch t {
	case character.TypeAnimal:
		if v, ok := animalVoices[attrs[character.AttrSpecies]]; ok {
			return v
		}
		return animalVoices["Dog"]
	case character.TypeHistorical:
		if v, ok := eraVoices[attrs[character.AttrEra]]; ok {
			return v
		}
		return eraVoices["Modern"]
	default:
		return DefaultVoice
	}
}
