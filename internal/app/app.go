package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/a-d-w-s/assethub/internal/cache"
	"github.com/a-d-w-s/assethub/internal/config"
	"github.com/a-d-w-s/assethub/internal/queue"
	"github.com/a-d-w-s/assethub/internal/redisholder"
	"github.com/a-d-w-s/assethub/internal/repository/fsrepo"
	"github.com/a-d-w-s/assethub/internal/transport/handler"
	"github.com/a-d-w-s/assethub/internal/transport/router"
	use_case "github.com/a-d-w-s/assethub/internal/use-case"
)

type App struct {
	HttpServer *http.Server
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	repo := fsrepo.New(cfg.Storage.Root)

	holder, err := redisholder.Build(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	rc := holder.Get()
	gatewayCache := cache.NewCache(cfg.Invalidator.Namespace, rc)

	notifier := queue.Init(ctx, rc, cfg.Invalidator, gatewayCache)

	uc := use_case.New(repo, notifier, cfg)

	h := handler.New(uc, cfg)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		HttpServer: s,
	}, nil
}

func (a *App) Run() error {
	log.Printf("starting server")
	return a.HttpServer.ListenAndServe()
}
