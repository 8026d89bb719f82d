package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"rsc.io/qr"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/campaign"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/gateway"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/health"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/metrics"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/service/system"
)

// SessionReader reads the gateway login state.
type SessionReader interface {
	QR(ctx context.Context) (string, bool, error)
	Connection(ctx context.Context) (*gateway.ConnectionStatus, error)
}

// MessageSender sends one payload to a chat.
type MessageSender interface {
	Send(ctx context.Context, chatID string, payload domain.Payload) (domain.MessageRef, error)
}

// GroupDirectory lists groups and their members.
type GroupDirectory interface {
	Groups(ctx context.Context) ([]domain.GroupMetadata, error)
	Mentions(ctx context.Context, id string, adminsOnly bool) ([]string, error)
}

// JobRunner triggers and describes campaign jobs.
type JobRunner interface {
	Jobs() []string
	NextRun(name string) (time.Time, error)
	Trigger(name string) error
}

// StatsSource samples host resource usage.
type StatsSource interface {
	GetCurrentStats(ctx context.Context) (*system.Stats, error)
}

// Deps: collaborators of Handler. Jobs, Stats, Health and Metrics may be nil.
type Deps struct {
	GroupTarget string
	Session     SessionReader
	Sender      MessageSender
	Groups      GroupDirectory
	Jobs        JobRunner
	Stats       StatsSource
	Health      *health.Checker
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Handler serves the API routes.
type Handler struct {
	groupTarget string
	session     SessionReader
	sender      MessageSender
	groups      GroupDirectory
	jobs        JobRunner
	stats       StatsSource
	health      *health.Checker
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		groupTarget: deps.GroupTarget,
		session:     deps.Session,
		sender:      deps.Sender,
		groups:      deps.Groups,
		jobs:        deps.Jobs,
		stats:       deps.Stats,
		health:      deps.Health,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// Health always answers 200; the body says whether dependencies are degraded.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Run(c.Request.Context()))
}

// QRCode renders the pending login QR as PNG, or 404 when none is pending.
func (h *Handler) QRCode(c *gin.Context) {
	pending, found, err := h.session.QR(c.Request.Context())
	if err != nil {
		h.logger.Error("QR_READ_FAILED", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read QR code"})
		return
	}
	if !found || pending == "" {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No QR code pending"})
		return
	}

	code, err := qr.Encode(pending, qr.M)
	if err != nil {
		h.logger.Error("QR_ENCODE_FAILED", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate QR code"})
		return
	}
	c.Header("Cache-Control", "no-store")
	code.Scale = 8
	c.Data(http.StatusOK, "image/png", code.PNG())
}

type sendOption struct {
	Leaderboard bool   `json:"leaderboard"`
	Profil      string `json:"profil" binding:"required,url"`
}

type sendTextRequest struct {
	GroupID     string      `json:"groupId"`
	Message     string      `json:"message"`
	TagAll      bool        `json:"tagAll"`
	TargetAdmin bool        `json:"targetAdmin"`
	Option      *sendOption `json:"option"`
}

// SendText posts a text (or, with option, an image captioned with the message) to a group.
// groupId defaults to the configured group target.
func (h *Handler) SendText(c *gin.Context) {
	var req sendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body", "error": err.Error()})
		return
	}
	if req.GroupID == "" {
		req.GroupID = h.groupTarget
	}
	if req.GroupID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Group ID and message are required"})
		return
	}

	ctx := c.Request.Context()
	var mentions []string
	if req.TagAll || req.TargetAdmin {
		var err error
		mentions, err = h.groups.Mentions(ctx, req.GroupID, !req.TagAll)
		if err != nil {
			h.logger.Error("SEND_MENTIONS_FAILED", slog.String("group", req.GroupID), slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message", "error": err.Error()})
			return
		}
	}

	var payload domain.Payload = domain.TextPayload{Text: req.Message, Mentions: mentions}
	if req.Option != nil {
		payload = domain.ImagePayload{ImageURL: req.Option.Profil, Caption: req.Message, Mentions: mentions}
	}

	if _, err := h.sender.Send(ctx, req.GroupID, payload); err != nil {
		h.logger.Error("SEND_TEXT_FAILED", slog.String("group", req.GroupID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Text message sent successfully"})
}

type groupSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Members int    `json:"members"`
	Admins  int    `json:"admins"`
}

// Groups lists the groups the bot is a member of.
func (h *Handler) Groups(c *gin.Context) {
	groups, err := h.groups.Groups(c.Request.Context())
	if err != nil {
		h.logger.Error("GROUPS_LIST_FAILED", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to list groups"})
		return
	}
	out := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		summary := groupSummary{ID: g.ID, Subject: g.Subject, Members: len(g.Participants)}
		for _, p := range g.Participants {
			if p.IsAdmin() {
				summary.Admins++
			}
		}
		out = append(out, summary)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "groups": out})
}

// Status reports host stats and the gateway connection. Failing parts are left null.
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	body := gin.H{
		"version": health.GetVersion(),
		"uptime":  health.GetUptime(),
	}

	if h.stats != nil {
		stats, err := h.stats.GetCurrentStats(ctx)
		if err != nil {
			h.logger.Warn("STATUS_STATS_FAILED", slog.Any("error", err))
		}
		body["system"] = stats
	}

	conn, err := h.session.Connection(ctx)
	if err != nil {
		h.logger.Warn("STATUS_CONNECTION_FAILED", slog.Any("error", err))
	}
	body["connection"] = conn
	body["connected"] = conn.Open()

	c.JSON(http.StatusOK, body)
}

type jobSummary struct {
	Name    string    `json:"name"`
	NextRun time.Time `json:"nextRun"`
}

// Campaigns lists the scheduled jobs with their next firing time.
func (h *Handler) Campaigns(c *gin.Context) {
	if h.jobs == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "jobs": []jobSummary{}})
		return
	}
	names := h.jobs.Jobs()
	out := make([]jobSummary, 0, len(names))
	for _, name := range names {
		next, err := h.jobs.NextRun(name)
		if err != nil {
			continue
		}
		out = append(out, jobSummary{Name: name, NextRun: next})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": out})
}

// RunCampaign starts a job now. 202 once started, 404 for an unknown job, 409 while it runs.
func (h *Handler) RunCampaign(c *gin.Context) {
	job := c.Param("job")
	if h.jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Scheduler disabled"})
		return
	}

	err := h.jobs.Trigger(job)
	switch {
	case errors.Is(err, campaign.ErrUnknownJob):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Unknown job", "job": job})
	case errors.Is(err, campaign.ErrJobRunning):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Job already running", "job": job})
	case err != nil:
		h.logger.Error("CAMPAIGN_TRIGGER_FAILED", slog.String("job", job), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start job", "job": job})
	default:
		h.logger.Info("CAMPAIGN_TRIGGERED", slog.String("job", job), slog.String("ip", c.ClientIP()))
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Job started", "job": job})
	}
}
