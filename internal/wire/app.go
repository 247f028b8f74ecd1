package wire

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/mithrel/medchat/internal/db"
	"github.com/mithrel/medchat/internal/keys"
)

// App aggregates the major services for easy injection.
type App struct {
	Cfg   *viper.Viper
	Log   *log.Logger
	Store *db.Store

	closer io.Closer
}

// BuildApp wires dependencies with the provided config.
func BuildApp(ctx context.Context, v *viper.Viper) (*App, error) {
	logger := log.New(os.Stderr, "medchat ", log.LstdFlags)
	if err := keys.ResolveToken(v); err != nil {
		return nil, fmt.Errorf("resolve auth token: %w", err)
	}
	store, closer, err := db.Open(ctx, v.GetString("db_url"))
	if err != nil {
		return nil, err
	}
	return &App{
		Cfg:    v,
		Log:    logger,
		Store:  store,
		closer: closer,
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
