package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

const verifyCustomTokenURL = "https://www.googleapis.com/identitytoolkit/v3/relyingparty/verifyCustomToken"

func tokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <token name>",
		Short: "Create a service token for authenticating with the REST API",
		Long: `Create a service token for authenticating with the REST API via firebase.

The token's uid is "service-<token name>". Add it to --admin-uids of the
server to let the token start harvests.`,
		Args: cobra.ExactArgs(1),
		RunE: runToken,
	}

	f := cmd.Flags()
	f.String("project-id", "the-third-party", "the firebase project-id used for auth")
	f.String("service-account", "", "Google service account JSON file associated with the firebase project")
	f.String("api-key", "", "a Google API key associated with the firebase project")

	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID: viper.GetString("project-id"),
	}, option.WithCredentialsFile(viper.GetString("service-account")))
	if err != nil {
		return err
	}
	auth, err := app.Auth(ctx)
	if err != nil {
		return err
	}

	uid := fmt.Sprintf("service-%s", args[0])
	customToken, err := auth.CustomToken(ctx, uid)
	if err != nil {
		return err
	}

	verifyReq, err := json.Marshal(map[string]interface{}{
		"returnSecureToken": true,
		"token":             customToken,
	})
	if err != nil {
		return err
	}

	verifyURL := fmt.Sprintf("%s?key=%s", verifyCustomTokenURL, viper.GetString("api-key"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, verifyURL, bytes.NewReader(verifyReq))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("verify custom token: %s: %s", resp.Status, body)
	}

	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}
