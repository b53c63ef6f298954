package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/tierbill/tierbill/internal/app/api/server"
	"github.com/tierbill/tierbill/internal/app/service/analytics"
	"github.com/tierbill/tierbill/internal/app/service/callback"
	"github.com/tierbill/tierbill/internal/app/service/callbacklog"
	"github.com/tierbill/tierbill/internal/app/service/ledger"
	"github.com/tierbill/tierbill/internal/app/service/notifier"
	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/internal/app/service/subscription"
	"github.com/tierbill/tierbill/internal/app/service/users"
	"github.com/tierbill/tierbill/internal/platform/db"
	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/logger"
	"github.com/tierbill/tierbill/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	fx.Provide(metrics.New),
	provider.Module,
	users.Module,
	subscription.Module,
	ledger.Module,
	analytics.Module,
	notifier.Module,
	callbacklog.Module,
	callback.Module,
	orchestrator.Module,
	server.Module,
)
