package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address         string
		Host            string
		DebugAddress    string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	SessionConfig struct {
		CookieName  string
		TTL         time.Duration
		LoginPath   string
		LandingPath string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		Build                     string
		AppName                   string
		SecretKey                 string
		APIBaseURL                string
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration
		RollbarToken              string
		SendgridAPIKey            string

		Server   ServerConfig
		Session  SessionConfig
		Database DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the configuration from the environment (and `config/.env.<env>` if it exists).
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	return newConfig(env, viper.New())
}

func newConfig(env string, v *viper.Viper) *Config {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("build", "dev")
	v.SetDefault("app_name", "Academia")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("api_base_url", "http://localhost:8080/api")
	v.SetDefault("frontend_base_url", "http://localhost:3000")
	v.SetDefault("default_from_email", "noreply@localhost")
	v.SetDefault("password_reset_timeout", 3*24*time.Hour)
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")

	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_debug_address", ":4000")
	v.SetDefault("server_shutdown_timeout", 5*time.Second)
	v.SetDefault("server_disable_req_logs", false)

	v.SetDefault("auth_cookie_name", "academia_session")
	v.SetDefault("session_ttl", 7*24*time.Hour)
	v.SetDefault("login_path", "/login")
	v.SetDefault("landing_path", "/dashboard")

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "academia")
	v.SetDefault("database_user", "academia")
	v.SetDefault("database_password", "")
	v.SetDefault("database_admin_user", "postgres")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", env == "DEV" || env == "TEST")
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("default_from_email"))
	if err != nil {
		log.Fatal(fmt.Sprintf("config.default_from_email: %v", err))
	}

	return &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  env == "TEST",
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("app_name"),
		SecretKey:                 v.GetString("secret_key"),
		APIBaseURL:                v.GetString("api_base_url"),
		FrontendBaseURL:           v.GetString("frontend_base_url"),
		DefaultFromEmail:          *from,
		PasswordResetTimeoutDelta: v.GetDuration("password_reset_timeout"),
		RollbarToken:              v.GetString("rollbar_token"),
		SendgridAPIKey:            v.GetString("sendgrid_api_key"),
		Server: ServerConfig{
			Address:         v.GetString("server_address"),
			Host:            v.GetString("server_host"),
			DebugAddress:    v.GetString("server_debug_address"),
			ShutdownTimeout: v.GetDuration("server_shutdown_timeout"),
			DisableReqLogs:  v.GetBool("server_disable_req_logs"),
		},
		Session: SessionConfig{
			CookieName:  v.GetString("auth_cookie_name"),
			TTL:         v.GetDuration("session_ttl"),
			LoginPath:   v.GetString("login_path"),
			LandingPath: v.GetString("landing_path"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_admin_user"),
			AdminPassword: v.GetString("database_admin_password"),
			DisableTLS:    v.GetBool("database_disable_tls"),
		},
	}
}
