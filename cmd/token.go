package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/nodeloop/kuberun/internal/checkauth"
	"github.com/urfave/cli/v2"
)

var TokenCommand = &cli.Command{
	Name:  "token",
	Usage: "Manage API tokens for serve mode",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Generate a new API token and its storable hash",
			Action: func(ctx *cli.Context) error {
				tokenBytes := make([]byte, 32)
				if _, err := rand.Read(tokenBytes); err != nil {
					return fmt.Errorf("failed to generate token: %w", err)
				}
				tokenString := hex.EncodeToString(tokenBytes)

				tokenHash, err := checkauth.HashToken(tokenString)
				if err != nil {
					return fmt.Errorf("failed to hash token: %w", err)
				}

				fmt.Printf("Token: %s\n", tokenString)
				fmt.Printf("Hash:  %s\n", tokenHash)
				fmt.Printf("\nGive the token to API clients and set KUBERUN_API_TOKEN_HASH on the server.\n")
				fmt.Printf("Save the token - it cannot be recovered from the hash!\n")

				return nil
			},
		},
		{
			Name:  "hash",
			Usage: "Hash an existing token for storage in KUBERUN_API_TOKEN_HASH",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "token",
					Aliases: []string{"t"},
					Usage:   "Token to hash (prompts if not provided)",
				},
			},
			Action: func(ctx *cli.Context) error {
				token := ctx.String("token")
				if token == "" {
					var err error
					token, err = promptForSecret("KUBERUN_API_TOKEN", "API token: ")
					if err != nil {
						return err
					}
				}
				if token == "" {
					return fmt.Errorf("token is required (use --token or KUBERUN_API_TOKEN)")
				}

				tokenHash, err := checkauth.HashToken(token)
				if err != nil {
					return fmt.Errorf("failed to hash token: %w", err)
				}

				fmt.Println(tokenHash)
				return nil
			},
		},
	},
}
