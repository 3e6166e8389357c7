// Command connect links a platform account from a terminal. It serves the
// redirect URI on a loopback listener and stores the token in the configured
// secure store.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/authsession"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}
	cfg := config.LoadConfig()

	platformName := flag.String("platform", "", "platform to connect: instagram, facebook, twitter, linkedin or pinterest")
	userID := flag.Int64("user", 1, "user id the connection belongs to")
	redirectURI := flag.String("redirect", "http://127.0.0.1:8765/oauth/callback", "loopback redirect URI registered with the platform")
	disconnect := flag.Bool("disconnect", false, "disconnect the platform instead of connecting it")
	list := flag.Bool("list", false, "list connected accounts and exit")
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the browser")
	backendKind := flag.String("store", cfg.StoreBackend, "secure store backend: postgres, redis or memory")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var db *sql.DB
	if *backendKind == securestore.BackendPostgres {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURI)
		if err != nil {
			log.Printf("Failed to connect to database: %v", err)
			return 1
		}
		defer db.Close()
	}
	var rdb *redis.Client
	if *backendKind == securestore.BackendRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
	}

	backend, err := securestore.OpenBackend(ctx, *backendKind, db, rdb)
	if err != nil {
		log.Printf("Failed to set up secure store: %v", err)
		return 1
	}
	sealer, err := securestore.NewSealer(cfg.EncryptionKey)
	if err != nil {
		log.Printf("Invalid encryption key: %v", err)
		return 1
	}
	store := securestore.NewStore(backend, sealer)

	registry := platform.NewRegistry(platform.DefaultConfigs(cfg.ClientIDs())...)
	var tokenProxy proxy.TokenProxy = proxy.NewOAuth2Proxy(registry, cfg.ProxyCredentials())
	if cfg.TokenProxyURL != "" {
		tokenProxy = proxy.NewHTTPProxy(cfg.TokenProxyURL, cfg.ProxyServiceKey, nil)
	}
	oauth := service.NewOAuthService(registry, store, tokenProxy, *redirectURI)

	if *list {
		accounts, err := oauth.Accounts(ctx, *userID)
		if err != nil {
			log.Printf("Failed to list accounts: %v", err)
			return 1
		}
		printJSON(accounts)
		return 0
	}

	p, err := platform.Parse(*platformName)
	if err != nil {
		flag.Usage()
		log.Println(err)
		return 2
	}

	if *disconnect {
		result := oauth.Disconnect(ctx, *userID, p)
		printJSON(result)
		if !result.Success {
			return 1
		}
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result := oauth.Authenticate(ctx, *userID, p, authsession.NewLoopback(openBrowser))
	printJSON(result)
	if !result.Success {
		return 1
	}
	return 0
}

func openBrowser(authURL string) error {
	fmt.Fprintf(os.Stderr, "Open this URL to authorize:\n\n  %s\n\n", authURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", authURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
	default:
		cmd = exec.Command("xdg-open", authURL)
	}
	if err := cmd.Start(); err != nil {
		// the URL is already on screen
		log.Printf("Could not open a browser: %v", err)
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("Failed to encode output: %v", err)
	}
}
