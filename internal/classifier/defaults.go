package classifier

import (
	"net/http"

	"cropscan/internal/config"
)

// Registry names for the built-in models. Routes resolve to these.
const (
	ModelCoconutSize  = "coconut-size"
	ModelAppleVariety = "apple-variety"
	ModelWhitefly     = "whitefly"
	ModelPlesispa     = "plesispa"
	ModelAudioEvent   = "audio-event"
)

const imageSize = 416

// NewDefaultRegistry builds the registry of supported classifiers, each
// backed by a serving model from cfg. Label lists are fixed: they must
// match the order the models were trained with.
func NewDefaultRegistry(cfg config.ModelsConfig, client *http.Client) (*Registry, error) {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewRegistry(
		&Descriptor{
			Name:     ModelCoconutSize,
			Category: "coconut-size",
			Labels:   []string{"Large", "Small", "Unclear"},
			Kind:     KindImage,
			Width:    imageSize,
			Height:   imageSize,
			Model:    NewServingModel(cfg.ServingURL, cfg.CoconutSize, client),
		},
		&Descriptor{
			Name:     ModelAppleVariety,
			Category: "apple-variety",
			Labels:   []string{"apple1", "apple2", "apple3"},
			Kind:     KindImage,
			Width:    imageSize,
			Height:   imageSize,
			Model:    NewServingModel(cfg.ServingURL, cfg.AppleVariety, client),
		},
		&Descriptor{
			Name:     ModelWhitefly,
			Category: "whitefly",
			Labels:   []string{"healthy_coconut", "whitefly_infected_coconut"},
			Kind:     KindImage,
			Width:    imageSize,
			Height:   imageSize,
			Model:    NewServingModel(cfg.ServingURL, cfg.Whitefly, client),
		},
		&Descriptor{
			Name:     ModelPlesispa,
			Category: "plesispa",
			Labels:   []string{"clean", "infected"},
			Kind:     KindImage,
			Width:    imageSize,
			Height:   imageSize,
			Model:    NewServingModel(cfg.ServingURL, cfg.Plesispa, client),
		},
		&Descriptor{
			Name:     ModelAudioEvent,
			Category: "audio-event",
			Labels:   []string{"down", "go", "left", "no", "right", "stop", "up", "yes"},
			Kind:     KindAudio,
			Model:    NewServingModel(cfg.ServingURL, cfg.AudioEvent, client),
		},
	)
}
