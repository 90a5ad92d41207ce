//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/qnabot/internal/bootstrap"
	"github.com/yanqian/qnabot/internal/domain/qnabot"
	"github.com/yanqian/qnabot/internal/infra/config"
	"github.com/yanqian/qnabot/internal/infra/qnamaker"
	httpiface "github.com/yanqian/qnabot/internal/interface/http"
	"github.com/yanqian/qnabot/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideEndpointConfig,
		provideQnAClient,
		provideBotConfig,
		provideAnswerStore,
		provideMissRepository,
		provideChannelVerifier,
		wire.Bind(new(qnabot.AnswerClient), new(*qnamaker.Client)),
		qnabot.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
