package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/pkg/common"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
)

// AskHandler forwards questions to the configured model provider
type AskHandler struct {
	answerer ports.Answerer
	errs     *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(answerer ports.Answerer, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *AskHandler {
	return &AskHandler{answerer: answerer, errs: errs, logger: logger}
}

// AskRequest is the body of POST /api/ask
type AskRequest struct {
	Question string `json:"question" validate:"required,min=1"`
}

// AskResponse carries the model answer
type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask handles POST /api/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errs.Handle(w, r, err)
		return
	}

	answer, err := h.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		if isTimeout(err) {
			h.errs.Handle(w, r, pkgerrors.NewTimeoutError("ask").WithCause(err))
			return
		}
		h.errs.Handle(w, r, pkgerrors.NewExternalError("ai", err))
		return
	}

	h.logger.Debug("Question answered", zap.Int("question_len", len(req.Question)), zap.Int("answer_len", len(answer)))
	common.RespondJSON(w, http.StatusOK, AskResponse{Answer: answer})
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
