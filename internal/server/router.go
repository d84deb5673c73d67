package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"runewallet/internal/handler"
	"runewallet/pkg/monitor"
)

// Handlers 路由需要的全部业务 handler
type Handlers struct {
	Wallet   *handler.WalletHandler
	Send     *handler.SendHandler
	Memoless *handler.MemolessHandler
	Chain    *handler.ChainHandler
}

// NewHTTPRouter 初始化并返回 Gin Engine
func NewHTTPRouter(h *Handlers) *gin.Engine {
	monitor.Init()

	r := gin.Default()
	r.Use(monitor.PrometheusMiddleware())

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		wallets := api.Group("/wallets")
		{
			wallets.POST("", h.Wallet.Create)
			wallets.POST("/import", h.Wallet.Import)
			wallets.GET("", h.Wallet.List)
			wallets.GET("/:id", h.Wallet.Get)
			wallets.DELETE("/:id", h.Wallet.Delete)
			wallets.POST("/:id/unlock", h.Wallet.Unlock)
			wallets.DELETE("/sessions/:token", h.Wallet.Lock)
			wallets.GET("/:id/balances", h.Wallet.Balances)
			wallets.GET("/:id/transactions", h.Wallet.Transactions)
		}

		send := api.Group("/send/wizards")
		{
			send.POST("", h.Send.Create)
			send.GET("/:id", h.Send.Status)
			send.POST("/:id/form", h.Send.SubmitForm)
			send.POST("/:id/back", h.Send.Back)
			send.POST("/:id/confirm", h.Send.Confirm)
			send.DELETE("/:id", h.Send.Close)
		}

		memoless := api.Group("/memoless/sessions")
		{
			memoless.POST("", h.Memoless.Create)
			memoless.GET("/:id", h.Memoless.State)
			memoless.POST("/:id/setup", h.Memoless.Setup)
			memoless.POST("/:id/register", h.Memoless.Register)
			memoless.POST("/:id/reference", h.Memoless.FetchReference)
			memoless.POST("/:id/reference/manual", h.Memoless.SetReference)
			memoless.POST("/:id/calculate", h.Memoless.Calculate)
			memoless.POST("/:id/back", h.Memoless.Back)
			memoless.POST("/:id/reset", h.Memoless.Reset)
			memoless.DELETE("/:id", h.Memoless.Close)
		}

		chain := api.Group("/chain")
		{
			chain.GET("/pools", h.Chain.Pools)
			chain.GET("/inbound", h.Chain.InboundAddresses)
			chain.GET("/network", h.Chain.Network)
			chain.GET("/tx/:hash", h.Chain.TrackTransaction)
		}
	}

	return r
}
