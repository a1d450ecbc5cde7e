package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/cmp-client/oauthmodel"
	"github.com/spf13/cobra"
)

// NewAPICmd creates the "api" subcommand.
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <method> <path>",
		Short: "Send an authorized request to the platform API",
		Example: "  cmpctl api GET /projects\n" +
			"  cmpctl api POST /projects --data '{\"name\":\"platform\"}'",
		Args: cobra.ExactArgs(2),
		RunE: runAPI,
	}
	cmd.Flags().StringP("data", "d", "", "JSON request body")
	return cmd
}

func runAPI(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	path := args[1]
	data, _ := cmd.Flags().GetString("data")

	var body any
	if data != "" {
		if !json.Valid([]byte(data)) {
			return exitError(exitFailure, "--data is not valid JSON")
		}
		body = json.RawMessage(data)
	}

	return withApp(cmd, func(ctx context.Context, app *App) error {
		var raw json.RawMessage
		err := app.API.Do(ctx, method, path, body, &raw)

		var respErr *oauthmodel.ResponseError
		if errors.As(err, &respErr) {
			hint := ""
			if respErr.StatusCode == http.StatusUnauthorized {
				hint = " (run cmpctl login)"
			}
			fmt.Fprintln(cmd.ErrOrStderr(), strings.TrimSpace(string(respErr.Body)))
			return exitError(exitAPI, "%s %s: %v%s", method, path, err, hint)
		}
		if err != nil {
			return exitError(exitAPI, "%s %s: %v", method, path, err)
		}

		if len(raw) == 0 {
			return nil
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(raw)
		}
		pretty.WriteByte('\n')
		_, err = cmd.OutOrStdout().Write(pretty.Bytes())
		return err
	})
}
