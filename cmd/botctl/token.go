package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/server"
)

var hashTokenCmd = &cobra.Command{
	Use:         "hash-token [token]",
	Short:       "Print the bcrypt hash to put in API_TOKEN_HASH (reads stdin without argument)",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{offlineAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) == 1 {
			token = args[0]
		} else {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read token: %w", err)
			}
			token = line
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("token must not be empty")
		}

		hash, err := server.HashToken(token)
		if err != nil {
			return fmt.Errorf("hash token: %w", err)
		}
		fmt.Println(hash)
		return nil
	},
}
