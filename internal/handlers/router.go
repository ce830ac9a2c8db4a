package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdamit/events-api/internal/models"
)

// Routes assembles the full API surface under /api. The participant set is
// mounted twice: under /pda and, gated by the parity flag, under /persohub.
func (h *Handler) Routes() http.Handler {
	api := chi.NewRouter()
	api.Use(h.Metrics)

	api.Get("/health", h.Health)
	api.Get("/ready", h.Ready)
	api.Handle("/metrics", promhttp.Handler())

	participant := h.participantRoutes()
	admin := h.adminRoutes()
	api.Mount("/pda", participant)
	api.Mount("/pda-admin", admin)
	api.With(h.FlagGate(models.FlagPersohubParity)).Mount("/persohub", participant)
	api.With(h.FlagGate(models.FlagPersohubParity)).Mount("/persohub-admin", admin)

	root := chi.NewRouter()
	root.Mount("/api", api)
	return root
}

// FlagGate hides a subtree behind a feature flag; disabled surfaces read as
// absent, not forbidden.
func (h *Handler) FlagGate(flag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !h.system.FlagEnabled(r.Context(), flag) {
				h.errorResponse(w, http.StatusNotFound, "not found")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) participantRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/config", h.PublicConfig)

	r.Route("/events", func(r chi.Router) {
		r.Get("/ongoing", h.ListOngoingEvents)
		r.Get("/all", h.ListAllEvents)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Get("/rounds", h.GetEventRounds)

			r.Group(func(r chi.Router) {
				r.Use(h.ParticipantAuth, h.EventCtx)

				r.Post("/register", h.Register)
				r.Get("/dashboard", h.Dashboard)
				r.Get("/my-rounds", h.MyRounds)
				r.Get("/qr", h.QRCode)
				r.Get("/me", h.MyRegistration)

				r.Route("/teams", func(r chi.Router) {
					r.Post("/create", h.CreateTeam)
					r.Post("/join", h.JoinTeam)
					r.Post("/invite", h.InviteTeammate)
					r.Get("/mine", h.MyTeam)
				})

				r.Route("/rounds/{roundID}", func(r chi.Router) {
					r.Get("/submission", h.GetSubmission)
					r.Put("/submission", h.PutSubmission)
					r.Delete("/submission", h.DeleteSubmission)
					r.Post("/submission/presign", h.PresignSubmission)
				})
			})
		})
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(h.ParticipantAuth)
		r.Get("/events", h.MyEvents)
		r.Get("/achievements", h.MyAchievements)
		r.Get("/certificates/{slug}", h.MyCertificate)
	})

	return r
}

func (h *Handler) adminRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.AdminAuth)

	r.Get("/events", h.AdminListEvents)
	r.Post("/events", h.audited("create_event", h.AdminCreateEvent))

	r.Route("/events/{slug}", func(r chi.Router) {
		r.Use(h.AdminEventCtx)

		r.Get("/", h.AdminGetEvent)
		r.Put("/", h.audited("update_event", h.AdminUpdateEvent))
		r.Delete("/", h.audited("delete_event", h.AdminDeleteEvent))
		r.Put("/registration", h.audited("set_registration_open", h.AdminSetRegistration))
		r.Put("/visibility", h.audited("set_visibility", h.AdminSetVisibility))
		r.Put("/status", h.audited("set_status", h.AdminSetStatus))
		r.Get("/admins", h.AdminEventAdmins)

		r.Route("/rounds", func(r chi.Router) {
			r.Get("/", h.AdminListRounds)
			r.Post("/", h.audited("create_round", h.AdminCreateRound))

			r.Route("/{roundID}", func(r chi.Router) {
				r.Get("/", h.AdminGetRound)
				r.Put("/", h.audited("update_round", h.AdminUpdateRound))
				r.Delete("/", h.audited("delete_round", h.AdminDeleteRound))

				r.Get("/scores", h.AdminScoreSheet)
				r.Post("/scores", h.audited("save_scores", h.AdminSaveScores))
				r.Post("/import-scores", h.audited("import_scores", h.AdminImportScores))

				r.Post("/freeze", h.audited("freeze_round", h.AdminFreezeRound))
				r.Post("/unfreeze", h.audited("unfreeze_round", h.AdminUnfreezeRound))

				r.Get("/panels", h.AdminListPanels)
				r.Put("/panels", h.audited("update_panels", h.AdminReplacePanels))
				r.Post("/panels/auto-assign", h.audited("auto_assign_panels", h.AdminAutoAssign))
				r.Get("/panels/assignments", h.AdminAssignments)
				r.Put("/panels/assignments", h.audited("set_assignments", h.AdminSetAssignments))
				r.Post("/panels/email", h.audited("email_panels", h.AdminEmailPanels))

				r.Put("/submission", h.audited("admin_update_submission", h.AdminUpdateSubmission))
			})
		})

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/mark", h.audited("mark_attendance", h.AdminMarkAttendance))
			r.Post("/scan", h.audited("scan_attendance", h.AdminScanAttendance))
		})

		r.Route("/badges", func(r chi.Router) {
			r.Get("/", h.AdminListBadges)
			r.Post("/", h.audited("create_badge", h.AdminCreateBadge))
			r.Delete("/{badgeID}", h.audited("delete_badge", h.AdminDeleteBadge))
		})

		r.Get("/leaderboard", h.AdminLeaderboard)
		r.Get("/leaderboard/rounds", h.AdminLeaderboardRounds)

		r.Route("/export", func(r chi.Router) {
			r.Get("/registrations", h.ExportRegistrations)
			r.Get("/scores/{roundID}", h.ExportScores)
			r.Get("/leaderboard", h.ExportLeaderboard)
		})

		r.Get("/logs", h.AdminLogs)

		r.Route("/teams/{teamID}", func(r chi.Router) {
			r.Get("/", h.AdminGetTeam)
			r.Delete("/", h.audited("delete_team", h.AdminDeleteTeam))
		})
	})

	r.Put("/config/{key}", h.audited("set_flag", h.AdminSetFlag))

	return r
}
