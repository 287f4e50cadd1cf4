package pkg

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ZohoConfig holds the OAuth credentials for the Zoho Books and Inventory
// APIs. The base URLs are overridable so tests can point the client at a
// local server.
type ZohoConfig struct {
	ClientID              string
	ClientSecret          string
	BooksRefreshToken     string
	InventoryRefreshToken string
	OrgID                 string
	AccountsURL           string
	BooksURL              string
	InventoryURL          string
}

// Contact is a person notified over WhatsApp when catalog items change.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Config struct {
	Addr      string
	RootDir   string
	SecretKey string
	RedisAddr string

	FrontendResetURL string
	ResetEmailSender string
	ResendAPIKey     string

	PlivoAuthID     string
	PlivoAuthToken  string
	PlivoFromNumber string

	SlackWebhookURL string
	NotifyContacts  []Contact

	Zoho ZohoConfig
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LoadConfig reads configuration from the environment, loading a .env file
// first if one is present.
func LoadConfig() (Config, error) {
	godotenv.Load()

	cfg := Config{
		Addr:      getenv("ORDERFORM_ADDR", ":8000"),
		RootDir:   getenv("ORDERFORM_ROOT_DIR", "/var/orderform"),
		SecretKey: os.Getenv("SECRET_KEY"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		FrontendResetURL: os.Getenv("FRONTEND_RESET_URL"),
		ResetEmailSender: getenv("RESET_EMAIL_SENDER", "no-reply@no-reply.pupscribe.in"),
		ResendAPIKey:     os.Getenv("RESEND_API_KEY"),

		PlivoAuthID:     os.Getenv("PLIVO_AUTH_ID"),
		PlivoAuthToken:  os.Getenv("PLIVO_AUTH_TOKEN"),
		PlivoFromNumber: os.Getenv("FROM_NUMBER"),

		SlackWebhookURL: os.Getenv("SLACK_URL"),
		NotifyContacts:  ParseContacts(os.Getenv("NOTIFY_CONTACTS")),

		Zoho: ZohoConfig{
			ClientID:              os.Getenv("CLIENT_ID"),
			ClientSecret:          os.Getenv("CLIENT_SECRET"),
			BooksRefreshToken:     os.Getenv("BOOKS_REFRESH_TOKEN"),
			InventoryRefreshToken: os.Getenv("INVENTORY_REFRESH_TOKEN"),
			OrgID:                 os.Getenv("ORG_ID"),
			AccountsURL:           getenv("ACCOUNTS_URL", "https://accounts.zoho.com"),
			BooksURL:              getenv("BOOKS_URL", "https://www.zohoapis.com/books/v3"),
			InventoryURL:          getenv("INVENTORY_URL", "https://www.zohoapis.com/inventory/v1"),
		},
	}

	if cfg.SecretKey == "" {
		return cfg, fmt.Errorf("SECRET_KEY environment variable not set")
	}

	return cfg, nil
}

// ParseContacts parses the NOTIFY_CONTACTS format: "Name=phone,Name=phone".
// Malformed entries are skipped.
func ParseContacts(raw string) []Contact {
	if raw == "" {
		return nil
	}

	var contacts []Contact
	for _, entry := range strings.Split(raw, ",") {
		name, phone, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || phone == "" {
			continue
		}
		contacts = append(contacts, Contact{Name: name, Phone: phone})
	}
	return contacts
}
