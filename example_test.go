package storefront_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/store/memory"
	"github.com/redis/go-redis/v9"
)

type stdoutNotifier struct{}

func (stdoutNotifier) Send(_ context.Context, n storefront.Notification) error {
	fmt.Println("mail", n.Template, "to", n.To)
	return nil
}

// ExampleNew builds an engine on the in-memory stores with an optional Redis
// client for OTP cooldowns.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	defer rdb.Close()

	cfg := storefront.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("fedcba9876543210fedcba9876543210")

	users := memory.NewUserStore()
	otps := memory.NewOtpStore()
	users.Cascade(otps)

	engine, err := storefront.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(users).
		WithOtpStore(otps).
		WithNotifier(stdoutNotifier{}).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Login shows how a login failure maps to an HTTP status.
func ExampleEngine_Login() {
	cfg := storefront.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("fedcba9876543210fedcba9876543210")
	cfg.Password.Algorithm = storefront.HashBcrypt
	cfg.Password.BcryptCost = 4

	engine, err := storefront.New().
		WithConfig(cfg).
		WithUserStore(memory.NewUserStore()).
		WithOtpStore(memory.NewOtpStore()).
		WithNotifier(stdoutNotifier{}).
		Build()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer engine.Close()

	ctx := context.Background()
	_, err = engine.Register(ctx, storefront.RegisterRequest{
		Email:           "alice@example.com",
		Password:        "Abc12345!",
		ConfirmPassword: "Abc12345!",
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	_, err = engine.Login(ctx, httptest.NewRecorder(), storefront.LoginRequest{
		Email:    "alice@example.com",
		Password: "Abc12345!",
	})
	fmt.Println(storefront.StatusOf(storefront.KindOf(err)), storefront.MessageOf(err))
	// Output:
	// mail emailVerifyTemplate to alice@example.com
	// 403 Please verify your email to login
}

func ExampleMessageOf() {
	err := storefront.Internal(errors.New("dial tcp 10.0.0.7:5432: connection refused"))
	fmt.Println(storefront.StatusOf(storefront.KindOf(err)), storefront.MessageOf(err))
	// Output: 500 Internal server error
}
