package admin

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-admin/internal/audit"
	"github.com/odyssey-erp/odyssey-admin/internal/identity"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/policy"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Audit actions written by the handlers.
const (
	ActionInvite      = "admin.invite"
	ActionRoleUpdate  = "admin.role.update"
	ActionPermissions = "admin.permissions.update"
	ActionEnable      = "admin.enable"
	ActionDisable     = "admin.disable"
	ActionDelete      = "admin.delete"
)

// Handler manages administrator endpoints.
type Handler struct {
	logger    *slog.Logger
	directory *Directory
	policy    *policy.Evaluator
	audit     *audit.Sink
	identity  identity.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, directory *Directory, evaluator *policy.Evaluator, sink *audit.Sink, ident identity.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, directory: directory, policy: evaluator, audit: sink, identity: ident}
}

// MountRoutes registers admin routes. Invite and remove additionally
// require the shared admin secret.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(audit.ScopeMiddleware)
	r.Use(h.identity.RequireIdentity)
	r.Post("/role", h.updateRole)
	r.Post("/permissions", h.updatePermissions)
	r.Post("/enable", h.enable)
	r.Group(func(r chi.Router) {
		r.Use(h.identity.RequireSharedSecret)
		r.Post("/invite", h.invite)
		r.Post("/remove", h.remove)
	})
}

type inviteRequest struct {
	TargetEmail  string   `json:"targetEmail" validate:"required"`
	Role         string   `json:"role" validate:"required"`
	Capabilities []string `json:"capabilities"`
}

type roleRequest struct {
	TargetEmail  string   `json:"targetEmail" validate:"required"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities"`
}

type permissionsRequest struct {
	TargetEmail     string                           `json:"targetEmail" validate:"required"`
	PagePermissions map[string]policy.PagePermission `json:"pagePermissions" validate:"required,min=1"`
}

type targetRequest struct {
	TargetEmail string `json:"targetEmail" validate:"required"`
	SoftDelete  *bool  `json:"softDelete"`
}

type actionResponse struct {
	OK          bool   `json:"ok"`
	Action      string `json:"action"`
	TargetEmail string `json:"targetEmail"`
	AuditID     string `json:"auditId,omitempty"`
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.authorize(w, r, policy.CapInviteAdmins)
	if !ok {
		return
	}
	err := h.directory.Invite(r.Context(), req.TargetEmail, req.Role, req.Capabilities, actor)
	h.finish(w, r, actor, ActionInvite, req.TargetEmail, map[string]audit.Value{
		"role":         audit.String(policy.NormalizeRole(req.Role)),
		"capabilities": capabilitiesValue(req.Capabilities),
	}, err)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Role) == "" && req.Capabilities == nil {
		httpx.RespondError(w, shared.Invalid("role or capabilities required"))
		return
	}
	actor, ok := h.authorize(w, r, policy.CapManageAdmins)
	if !ok {
		return
	}
	previous, err := h.directory.LoadByEmail(r.Context(), req.TargetEmail)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	err = h.directory.UpsertRole(r.Context(), req.TargetEmail, req.Role, req.Capabilities, actor)
	h.finish(w, r, actor, ActionRoleUpdate, req.TargetEmail, map[string]audit.Value{
		"previousRole": audit.String(previous.Role),
		"role":         optionalRole(req.Role),
		"capabilities": capabilitiesValue(req.Capabilities),
	}, err)
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.authorize(w, r, policy.CapManageAdmins)
	if !ok {
		return
	}
	err := h.directory.SetPagePermissions(r.Context(), req.TargetEmail, req.PagePermissions, actor)
	h.finish(w, r, actor, ActionPermissions, req.TargetEmail, map[string]audit.Value{
		"pagePermissions": audit.FromAny(req.PagePermissions),
	}, err)
}

func (h *Handler) enable(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.authorize(w, r, policy.CapManageAdmins)
	if !ok {
		return
	}
	err := h.directory.Enable(r.Context(), req.TargetEmail, actor)
	h.finish(w, r, actor, ActionEnable, req.TargetEmail, nil, err)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, ok := h.authorize(w, r, policy.CapRemoveAdmins)
	if !ok {
		return
	}
	target, err := CanonicalEmail(req.TargetEmail)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if self, _ := CanonicalEmail(actor.Email); self == target {
		httpx.RespondError(w, shared.Invalid("cannot remove yourself"))
		return
	}
	soft := req.SoftDelete == nil || *req.SoftDelete
	action := ActionDisable
	if soft {
		err = h.directory.SoftDisable(r.Context(), target, actor)
	} else {
		action = ActionDelete
		err = h.directory.HardDelete(r.Context(), target)
	}
	h.finish(w, r, actor, action, target, map[string]audit.Value{
		"softDelete": audit.Bool(soft),
	}, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		httpx.RespondError(w, shared.Invalid("%s", err.Error()))
		return false
	}
	return true
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, capability policy.Capability) (policy.Actor, bool) {
	actor := identity.ActorFromContext(r.Context())
	if err := h.policy.Authorize(r.Context(), actor, capability); err != nil {
		h.logger.Warn("admin action denied",
			slog.String("capability", capability.Name),
			slog.String("actor", actor.Email),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return policy.Actor{}, false
	}
	return actor, true
}

// finish records the outcome of a mutation and writes the response. The
// audit write happens whether or not the mutation succeeded and never
// changes the response.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, actor policy.Actor, action, targetEmail string, extra map[string]audit.Value, mutationErr error) {
	target, _ := CanonicalEmail(targetEmail)
	note := "ok"
	if mutationErr != nil {
		note = "failed: " + shared.MessageOf(mutationErr)
	}
	if extra == nil {
		extra = map[string]audit.Value{}
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		extra["rid"] = audit.String(rid)
	}
	auditID := audit.Best(r.Context(), h.audit, h.logger, audit.ScopeFrom(r.Context()), audit.Entry{
		Action: action,
		Actor:  audit.ActorValue(actor),
		Target: audit.Object(map[string]audit.Value{"email": audit.String(target)}),
		Note:   note,
		Extra:  audit.Object(extra),
	})
	if mutationErr != nil {
		h.logger.Error("admin action failed", slog.String("action", action), slog.String("target", target), slog.Any("error", mutationErr))
		httpx.RespondError(w, mutationErr)
		return
	}
	httpx.JSON(w, http.StatusOK, actionResponse{OK: true, Action: action, TargetEmail: target, AuditID: auditID})
}

func capabilitiesValue(caps []string) audit.Value {
	if caps == nil {
		return audit.Absent()
	}
	return audit.FromAny(caps)
}

func optionalRole(role string) audit.Value {
	role = policy.NormalizeRole(role)
	if role == "" {
		return audit.Absent()
	}
	return audit.String(role)
}
