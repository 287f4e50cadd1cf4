package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/pupscribe/orderform/pkg"
)

var daemonURL string

func apiURL(path string) string {
	return strings.TrimSuffix(daemonURL, "/") + path
}

func doRequest(method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequest(method, apiURL(path), body)
	if err != nil {
		return nil, err
	}
	if token := os.Getenv("ORDERFORM_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return http.DefaultClient.Do(req)
}

func decodeOrFail(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var apiErr pkg.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	return s
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the daemon is up",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := doRequest(http.MethodGet, "/", nil)
			if err != nil {
				return fmt.Errorf("daemon unreachable at %s: %w", daemonURL, err)
			}
			if err := decodeOrFail(resp, nil); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "sync [products|invoices]",
		Short:     "Trigger a Zoho sync job",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "invoices"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sp := newSpinner(fmt.Sprintf("Starting %s sync...", args[0]))
			sp.Start()
			resp, err := doRequest(http.MethodPost, "/api/zoho/sync/"+args[0], nil)
			sp.Stop()
			if err != nil {
				return err
			}

			var msg pkg.MessageResponse
			if err := decodeOrFail(resp, &msg); err != nil {
				return err
			}
			fmt.Println(msg.Message)
			return nil
		},
	}
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users (requires ORDERFORM_TOKEN)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := doRequest(http.MethodGet, "/api/admin/users", nil)
			if err != nil {
				return err
			}

			var out struct {
				Users []struct {
					ID     int64  `json:"id"`
					Email  string `json:"email"`
					Name   string `json:"name"`
					Code   string `json:"code"`
					Role   string `json:"role"`
					Status string `json:"status"`
				} `json:"users"`
			}
			if err := decodeOrFail(resp, &out); err != nil {
				return err
			}

			for _, u := range out.Users {
				fmt.Printf("%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Code, u.Role, u.Status)
			}
			return nil
		},
	})

	var email, password, name, code, phone, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{
				"email": email, "password": password, "name": name,
				"code": code, "phone": phone, "role": role,
			})
			if err != nil {
				return err
			}

			resp, err := doRequest(http.MethodPost, "/api/admin/users", strings.NewReader(string(payload)))
			if err != nil {
				return err
			}

			var out struct {
				UserID int64 `json:"user_id"`
			}
			if err := decodeOrFail(resp, &out); err != nil {
				return err
			}
			fmt.Printf("created user %d\n", out.UserID)
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "email address")
	create.Flags().StringVar(&password, "password", "", "password")
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&code, "code", "", "salesperson code")
	create.Flags().StringVar(&phone, "phone", "", "WhatsApp phone number")
	create.Flags().StringVar(&role, "role", "salesperson", "role")
	create.MarkFlagRequired("email")
	create.MarkFlagRequired("password")
	cmd.AddCommand(create)

	return cmd
}

func main() {
	root := &cobra.Command{
		Use:           "orderform",
		Short:         "Operator CLI for the Order Form daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&daemonURL, "addr", "http://127.0.0.1:8000", "daemon base URL")

	root.AddCommand(healthCmd(), syncCmd(), usersCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
