// Command dataplug-token mints a session token for an operator account,
// signed with the server's configured secret.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/services"
	"dataplug/pkg/config"
	"dataplug/pkg/logger"
	"dataplug/pkg/utils"
	"dataplug/pkg/validation"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the server configuration")
	email := flag.String("email", "", "account email embedded in the token")
	accountID := flag.String("account", "", "account id (generated when empty)")
	flag.Parse()

	log := logger.New("info").Sugar()
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load configuration", "error", err)
	}

	// the admin allow-list is case-sensitive, so the email is embedded as given
	if err := validation.ValidateEmail(utils.NormalizeEmail(*email)); err != nil {
		log.Fatalw("invalid email", "error", err)
	}
	if *accountID == "" {
		*accountID = "acct_" + utils.NewStreamID()
	}

	sessions := services.NewSessionService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	token, err := sessions.IssueToken(domain.Identity{
		AccountID: domain.AccountID(*accountID),
		Email:     strings.TrimSpace(*email),
	})
	if err != nil {
		log.Fatalw("failed to sign token", "error", err)
	}

	log.Infow("token issued",
		"account_id", *accountID,
		"email", utils.MaskSensitive(*email, 3),
		"ttl", cfg.Auth.SessionTTL.String(),
	)
	fmt.Fprintln(os.Stdout, token)
}
