package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/wolfman30/messenger-booking-relay/internal/config"
	"github.com/wolfman30/messenger-booking-relay/internal/nlu"
	"github.com/wolfman30/messenger-booking-relay/pkg/logging"
)

// BuildIntentDetector wires the Dialogflow client from config.
func BuildIntentDetector(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*nlu.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	creds := nlu.Credentials{
		File:        cfg.GoogleCredentialsFile,
		ClientEmail: cfg.GoogleClientEmail,
		PrivateKey:  cfg.GooglePrivateKey,
	}
	credOpt, err := creds.CredentialsOption()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	client, err := nlu.NewClient(ctx, cfg.GoogleProjectID, cfg.LanguageCode, logger, credOpt)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return client, nil
}
