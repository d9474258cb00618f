// Command linkctl is the operator tool: schema migrations, seeding, users,
// links and access tokens, straight against the configured database.
package main

import (
	"ShrtLink-Backend/internal/auth"
	"ShrtLink-Backend/internal/cache"
	"ShrtLink-Backend/internal/config"
	"ShrtLink-Backend/internal/database"
	"ShrtLink-Backend/internal/domain"
	"ShrtLink-Backend/internal/repository/postgres"
	"ShrtLink-Backend/internal/service"
	"ShrtLink-Backend/pkg/logger"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func (e *env) close() {
	if e.db != nil {
		_ = database.Close(e.db, e.log)
	}
	_ = e.log.Sync()
}

func open() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	log := logger.New(cfg.Env)

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

type migrateCommand struct{}

func (c *migrateCommand) Execute([]string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()
	return database.AutoMigrate(e.db, e.log)
}

type seedCommand struct{}

func (c *seedCommand) Execute([]string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()
	return database.SeedData(e.db, e.log)
}

type userAddCommand struct {
	Email    string `short:"e" long:"email" description:"user email" required:"true"`
	Password string `short:"p" long:"password" description:"account password" required:"true"`
	Role     string `short:"r" long:"role" description:"user, admin or superadmin" default:"user" choice:"user" choice:"admin" choice:"superadmin"`
	Plan     int16  `long:"plan" description:"subscription type id" default:"1"`
}

func (c *userAddCommand) Execute([]string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()

	hash, err := auth.NewPasswordService().Hash(c.Password)
	if err != nil {
		return err
	}

	user := &domain.User{
		Email:              normalizeEmail(c.Email),
		PasswordHash:       &hash,
		Role:               c.Role,
		SubscriptionTypeID: c.Plan,
		IsActive:           true,
	}
	if err := postgres.New(e.db, e.log).CreateUser(context.Background(), user); err != nil {
		return err
	}

	fmt.Println(user.ID)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type createCommand struct {
	Owner    string `short:"o" long:"owner" description:"owner email; anonymous when empty"`
	Alias    string `short:"a" long:"alias" description:"custom alias"`
	Password string `short:"p" long:"password" description:"protect the link with a password"`
	ExpireIn int64  `short:"e" long:"expire" description:"expire in (seconds)" default:"-1"`
	Limit    int    `short:"l" long:"limit" description:"click limit, 0 for none" default:"0"`
	Args     struct {
		URL string `positional-arg-name:"url" required:"true"`
	} `positional-args:"yes"`
}

func (c *createCommand) Execute([]string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := context.Background()
	store := postgres.New(e.db, e.log)

	var ownerID *int64
	if c.Owner != "" {
		user, err := store.FindUserByEmail(ctx, normalizeEmail(c.Owner))
		if err != nil {
			return fmt.Errorf("owner %s: %w", c.Owner, err)
		}
		ownerID = &user.ID
	}

	in := service.CreateLinkInput{
		OriginalURL: c.Args.URL,
		CustomAlias: c.Alias,
		Password:    c.Password,
		ClickLimit:  c.Limit,
	}
	if c.ExpireIn > 0 {
		expiresAt := time.Now().UTC().Add(time.Duration(c.ExpireIn) * time.Second)
		in.ExpiresAt = &expiresAt
	}

	hasher := auth.NewPasswordServiceWithCost(e.cfg.URLShortener.PasswordCost)
	shortener := service.NewURLShortener(store, cache.NewNoop(), hasher, &e.cfg.URLShortener, e.log)
	link, err := shortener.Create(ctx, ownerID, in)
	if err != nil {
		return err
	}

	fmt.Println(shortener.ShortURL(link))
	return nil
}

type tokenCommand struct {
	Email string `short:"e" long:"email" description:"user email" required:"true"`
}

func (c *tokenCommand) Execute([]string) error {
	e, err := open()
	if err != nil {
		return err
	}
	defer e.close()

	user, err := postgres.New(e.db, e.log).FindUserByEmail(context.Background(), normalizeEmail(c.Email))
	if err != nil {
		return err
	}

	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(e.cfg.JWT.Secret),
		AccessTokenDuration: e.cfg.JWT.AccessTokenTTL,
		Issuer:              e.cfg.JWT.Issuer,
	})
	token, err := jwtService.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

func main() {
	parser := flags.NewParser(nil, flags.Default)
	commands := []struct {
		name, short string
		data        interface{}
	}{
		{"migrate", "apply the database schema", &migrateCommand{}},
		{"seed", "insert the default subscription plans", &seedCommand{}},
		{"useradd", "create a user account", &userAddCommand{}},
		{"create", "shorten a URL", &createCommand{}},
		{"token", "issue an access token for a user", &tokenCommand{}},
	}
	for _, c := range commands {
		if _, err := parser.AddCommand(c.name, c.short, "", c.data); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
