package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lbarroso/zapsender/internal/campaign"
	"github.com/lbarroso/zapsender/internal/store"
	"github.com/lbarroso/zapsender/pkg/logx"
	"github.com/lbarroso/zapsender/pkg/metrics"
	"github.com/lbarroso/zapsender/pkg/rmq"
)

const maxTituloLen = 100

type storeAPI interface {
	InsertMessage(ctx context.Context, titulo, texto string) (int64, error)
	GetMessage(ctx context.Context, id int64) (store.MessageRow, error)
	ListMessages(ctx context.Context) ([]store.MessageRow, error)
	InsertCampaignQueued(ctx context.Context, jobID string, mensagemID int64, total int) error
	GetCampaign(ctx context.Context, jobID string) (store.CampaignRow, error)
}

type publisherAPI interface {
	PublishJSON(ctx context.Context, body []byte) error
}

type storeAdapter struct{ *store.Store }
type publisherAdapter struct{ *rmq.Publisher }

type Handlers struct {
	Store storeAPI
	Pub   publisherAPI
}

func NewHandlers(s *store.Store, pub *rmq.Publisher) *Handlers {
	return &Handlers{Store: &storeAdapter{s}, Pub: &publisherAdapter{pub}}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func erro(c *gin.Context, code int, msg string) {
	c.JSON(code, campaign.StatusResp{Status: "erro", Mensagem: msg})
}

func (h *Handlers) Index(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	msgs, err := h.Store.ListMessages(ctx)
	if err != nil {
		// Page still renders, just empty, e.g. before the first migration.
		logx.L().Warnw("list_messages_error", "error", err)
		msgs = nil
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Mensagens": msgs})
}

func (h *Handlers) SaveMessage(c *gin.Context) {
	var req campaign.SaveMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		erro(c, http.StatusBadRequest, "Título e texto são obrigatórios.")
		return
	}
	if req.Titulo == "" || req.Texto == "" {
		erro(c, http.StatusBadRequest, "Título e texto são obrigatórios.")
		return
	}
	if utf8.RuneCountInString(req.Titulo) > maxTituloLen {
		erro(c, http.StatusBadRequest, "O título deve ter no máximo 100 caracteres.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	id, err := h.Store.InsertMessage(ctx, req.Titulo, req.Texto)
	if err != nil {
		logx.L().Errorw("insert_message_error", "error", err)
		erro(c, http.StatusInternalServerError, "Falha ao salvar a mensagem.")
		return
	}

	metrics.MessagesSavedTotal.Inc()
	logx.L().Infow("message_saved", "id", id)
	c.JSON(http.StatusOK, campaign.StatusResp{Status: "sucesso", Mensagem: "Mensagem salva!"})
}

func (h *Handlers) SendCampaign(c *gin.Context) {
	var req campaign.SendCampaignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		erro(c, http.StatusBadRequest, "Dados incompletos.")
		return
	}
	if req.Numeros == "" || req.IDMensagem == nil || req.Intervalo == nil {
		erro(c, http.StatusBadRequest, "Dados incompletos.")
		return
	}
	if *req.Intervalo < campaign.MinInterval {
		erro(c, http.StatusBadRequest, "O intervalo deve ser de no mínimo 5 segundos.")
		return
	}

	// strings.Fields drops empty tokens, so a whitespace-only list comes
	// out with zero recipients.
	recipients := strings.Fields(req.Numeros)
	if len(recipients) == 0 {
		erro(c, http.StatusBadRequest, "Dados incompletos.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	msg, err := h.Store.GetMessage(ctx, *req.IDMensagem)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			erro(c, http.StatusNotFound, "Mensagem não encontrada.")
			return
		}
		logx.L().Errorw("get_message_error", "id", *req.IDMensagem, "error", err)
		erro(c, http.StatusInternalServerError, "Falha ao consultar a mensagem.")
		return
	}

	job := campaign.Job{
		JobID:           uuid.NewString(),
		Recipients:      recipients,
		MessageBody:     msg.Texto,
		IntervalSeconds: *req.Intervalo,
	}

	if err := h.Store.InsertCampaignQueued(ctx, job.JobID, msg.ID, len(recipients)); err != nil {
		logx.L().Errorw("insert_campaign_error", "job_id", job.JobID, "error", err)
		erro(c, http.StatusInternalServerError, "Falha ao registrar a campanha.")
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		logx.L().Errorw("job_marshal_error", "job_id", job.JobID, "error", err)
		erro(c, http.StatusInternalServerError, "Falha ao enfileirar a campanha.")
		return
	}

	ctxPub, cancelPub := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPub()
	if err := h.Pub.PublishJSON(ctxPub, payload); err != nil {
		logx.L().Errorw("publish_job_error", "job_id", job.JobID, "error", err)
		erro(c, http.StatusBadGateway, "Falha ao enfileirar a campanha.")
		return
	}

	metrics.CampaignsPublishedTotal.Inc()
	logx.L().Infow("campaign_published",
		"job_id", job.JobID,
		"mensagem_id", msg.ID,
		"recipients", len(recipients),
		"interval", *req.Intervalo,
	)
	c.JSON(http.StatusOK, campaign.StatusResp{
		Status:   "sucesso",
		Mensagem: "Campanha iniciada! O envio está ocorrendo em segundo plano.",
		JobID:    job.JobID,
	})
}

func (h *Handlers) GetCampaign(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		erro(c, http.StatusBadRequest, "Identificador de campanha inválido.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	row, err := h.Store.GetCampaign(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			erro(c, http.StatusNotFound, "Campanha não encontrada.")
			return
		}
		logx.L().Errorw("get_campaign_error", "job_id", jobID, "error", err)
		erro(c, http.StatusInternalServerError, "Falha ao consultar a campanha.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":      row.JobID,
		"mensagem_id": row.MensagemID,
		"total":       row.Total,
		"enviados":    row.Enviados,
		"falhas":      row.Falhas,
		"status":      row.Status,
		"created_at":  row.CreatedAt,
		"updated_at":  row.UpdatedAt,
	})
}
