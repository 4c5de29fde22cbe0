package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Devprenuer/ai-tutor/internal/auth"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token, creating the user if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		if email == "" {
			return errors.New("--email is required")
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl == 0 {
			ttl = rt.cfg.Auth.TokenTTL
		}

		var user store.User
		err = rt.store.DB().WithContext(cmd.Context()).
			Where(store.User{Email: email}).
			Attrs(store.User{Name: name}).
			FirstOrCreate(&user).Error
		if err != nil {
			return fmt.Errorf("find or create user: %w", err)
		}

		token, err := auth.Issue(rt.cfg.Auth.JWTSecret, &user, ttl)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("email", "", "User email")
	tokenCmd.Flags().String("name", "", "Display name for a new user")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default auth.token_ttl)")
}
