// Command expensectl is an interactive terminal client for the Expense Tracker
// API. It signs in through Firebase Authentication and keeps the backend
// session cookie for the rest of the run.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sebuszqo/ExpenseTracker/config"
	"github.com/sebuszqo/ExpenseTracker/internal/client/authstate"
	"github.com/sebuszqo/ExpenseTracker/internal/client/backend"
	"github.com/sebuszqo/ExpenseTracker/internal/client/identity"
	"github.com/sebuszqo/ExpenseTracker/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/term"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "expensectl: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(config.EnvDevelopment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "expensectl: %v\n", err)
		os.Exit(1)
	}
	log = log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	defer func() { _ = log.Sync() }()

	api, err := backend.NewClient(cfg.APIURL, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal("invalid API url", zap.Error(err))
	}

	idOpts := identity.Options{
		APIKey:  cfg.FirebaseAPIKey,
		BaseURL: cfg.IdentityURL,
		Timeout: cfg.HTTPTimeout,
		OnDeviceCode: func(da *oauth2.DeviceAuthResponse) {
			fmt.Printf("Open %s and enter code %s\n", da.VerificationURI, da.UserCode)
		},
	}
	if cfg.GoogleEnabled() {
		idOpts.Google = identity.GoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
	}

	controller := authstate.NewController(identity.NewClient(idOpts), api, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		auth:         controller,
		api:          api,
		readPassword: terminalPassword,
	}
	if err := a.run(ctx); err != nil {
		log.Fatal("expensectl stopped", zap.Error(err))
	}
}

func terminalPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
