// Command connectctl is the operator CLI: key generation, dev token
// minting, config checks, and connection inspection over the API.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/charo360/nevis-connect/internal/config"
)

func main() {
	var (
		baseURL = envOr("CONNECT_URL", "http://localhost:8080")
		token   = envOr("CONNECT_TOKEN", "")
	)

	root := &cobra.Command{
		Use:   "connectctl",
		Short: "Operator CLI for the connection service",
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "service base URL (env CONNECT_URL)")
	root.PersistentFlags().StringVar(&token, "token", token, "bearer token (env CONNECT_TOKEN)")

	httpClient := &http.Client{Timeout: 30 * time.Second}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a base64 master key for credential encryption",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(key))
			return nil
		},
	}

	var tokenUser, tokenSecret string
	var tokenTTL time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a dev bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tokenUser == "" {
				return fmt.Errorf("--user is required")
			}
			if tokenSecret == "" {
				tokenSecret = os.Getenv("CONNECT_JWT_SECRET")
			}
			if tokenSecret == "" {
				return fmt.Errorf("--secret or CONNECT_JWT_SECRET is required")
			}
			now := time.Now()
			t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub": tokenUser,
				"iat": now.Unix(),
				"exp": now.Add(tokenTTL).Unix(),
			})
			signed, err := t.SignedString([]byte(tokenSecret))
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user ID for the token subject")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "HS256 secret (env CONNECT_JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	var checkPath string
	checkCmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(checkPath)
			if err != nil {
				return err
			}
			enabled := []string{}
			p := cfg.Providers
			if p.Twitter.Enabled {
				enabled = append(enabled, "twitter")
			}
			if p.LinkedIn.Enabled {
				enabled = append(enabled, "linkedin")
			}
			if p.Instagram.Enabled {
				enabled = append(enabled, "instagram")
			}
			fmt.Printf("ok: addr=%s storage=%s cache=%s providers=[%s]\n",
				cfg.Server.Addr, cfg.Storage.Driver, cfg.Cache.Kind, strings.Join(enabled, ", "))
			return nil
		},
	}
	checkCmd.Flags().StringVar(&checkPath, "config", "config.yaml", "path to config file")

	connectionsCmd := &cobra.Command{
		Use:   "connections",
		Short: "List the token holder's linked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequest(http.MethodGet, strings.TrimRight(baseURL, "/")+"/connections", nil)
			if err != nil {
				return err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
			}
			var v any
			if json.Unmarshal(body, &v) == nil {
				pretty, _ := json.MarshalIndent(v, "", "  ")
				fmt.Println(string(pretty))
				return nil
			}
			fmt.Println(string(body))
			return nil
		},
	}

	var disconnectPlatform string
	disconnectCmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Remove a linked account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if disconnectPlatform == "" {
				return fmt.Errorf("--platform is required")
			}
			req, err := http.NewRequest(http.MethodDelete,
				strings.TrimRight(baseURL, "/")+"/connections/"+disconnectPlatform, nil)
			if err != nil {
				return err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
			}
			fmt.Println("disconnected")
			return nil
		},
	}
	disconnectCmd.Flags().StringVar(&disconnectPlatform, "platform", "", "platform to unlink")

	root.AddCommand(keygenCmd, tokenCmd, checkCmd, connectionsCmd, disconnectCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
