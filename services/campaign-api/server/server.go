package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lbarroso/zapsender/pkg/metrics"
	"github.com/lbarroso/zapsender/web"
)

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery(), Observability())
	r.SetHTMLTemplate(web.IndexTemplate())

	r.GET("/", h.Index)
	r.POST("/salvar-mensagem", h.SaveMessage)
	r.POST("/enviar-campanha", h.SendCampaign)
	r.GET("/campanhas/:job_id", h.GetCampaign)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
