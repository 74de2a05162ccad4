package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/diwise/record-mirror/internal/pkg/application/registry"
	"github.com/diwise/record-mirror/internal/pkg/presentation/api/records/auth"
	mirrorerrors "github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("record-store/datastore/records")

func RegisterHandlers(ctx context.Context, r *chi.Mux, policies io.Reader, app registry.RecordRegistry) error {

	authenticator, err := auth.NewAuthenticator(ctx, policies)
	if err != nil {
		return fmt.Errorf("failed to create api authenticator: %w", err)
	}

	r.Route("/datastore/v1", func(r chi.Router) {
		r.Use(
			Logger(logging.GetFromContext(ctx)),
			TenantMiddleware(),
		)

		r.Route("/records/{kind}", func(r chi.Router) {
			r.Post("/", NewCreateRecordHandler(app, authenticator))

			r.Route("/{identity}", func(r chi.Router) {
				r.Get("/", NewRetrieveRecordHandler(app, authenticator))
				r.Patch("/", NewUpdateRecordHandler(app, authenticator))
				r.Delete("/", NewDeleteRecordHandler(app, authenticator))
			})
		})
	})

	return nil
}

type tenantContextKey struct {
	name string
}

var tenantCtxKey = &tenantContextKey{"datastore-tenant"}

func GetTenantFromContext(ctx context.Context) string {
	tenant, ok := ctx.Value(tenantCtxKey).(string)
	if !ok {
		return "default"
	}

	return tenant
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantMiddleware packs any tenant id into the context
func TenantMiddleware() func(http.Handler) http.Handler {
	tenantHeaderName := http.CanonicalHeaderKey("Datastore-Tenant")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := "default"

			if values, ok := r.Header[tenantHeaderName]; ok && len(values) > 0 {
				tenant = values[0]
			}

			ctx := context.WithValue(r.Context(), tenantCtxKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func traceIDFromSpan(span trace.Span) string {
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}

	return ""
}

func reportRegistryError(w http.ResponseWriter, err error, traceID string) {
	switch e := err.(type) {
	case registry.AlreadyExistsError:
		mirrorerrors.ReportNewAlreadyExistsError(w, e.Error(), traceID)
	case registry.BadRequestDataError:
		mirrorerrors.ReportNewBadRequestData(w, e.Error(), traceID)
	case registry.NotFoundError:
		mirrorerrors.ReportNotFoundError(w, e.Error(), traceID)
	case registry.UnknownTenantError:
		mirrorerrors.ReportUnknownTenantError(w, e.Error(), traceID)
	default:
		mirrorerrors.ReportNewInternalError(w, err.Error(), traceID)
	}
}

// NewCreateRecordHandler handles incoming POST requests for new records
func NewCreateRecordHandler(app registry.RecordRegistry, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		tenant := GetTenantFromContext(ctx)
		kind := chi.URLParam(r, "kind")

		ctx, span := tracer.Start(ctx, "create-record")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		traceID := traceIDFromSpan(span)
		log := logging.GetFromContext(ctx)

		err = authenticator.CheckAccess(ctx, r, tenant, []string{kind})
		if err != nil {
			log.Warn("access check failed", "err", err.Error())
			mirrorerrors.ReportUnauthorizedRequest(w, "not authorized", traceID)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			mirrorerrors.ReportNewBadRequestData(w, "unable to read request body", traceID)
			return
		}

		fields := map[string]any{}
		err = json.Unmarshal(body, &fields)
		if err != nil {
			mirrorerrors.ReportNewBadRequestData(
				w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID,
			)
			return
		}

		record, err := app.Create(ctx, tenant, kind, fields)
		if err != nil {
			reportRegistryError(w, err, traceID)
			return
		}

		response, _ := json.Marshal(struct {
			Identity  string    `json:"identity"`
			CreatedAt time.Time `json:"createdAt"`
			UpdatedAt time.Time `json:"updatedAt"`
		}{
			Identity:  record.Identity,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})

		w.Header().Add("Location", "/datastore/v1/records/"+url.PathEscape(kind)+"/"+url.PathEscape(record.Identity))
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write(response)
	}
}

// NewRetrieveRecordHandler handles GET requests for a single record
func NewRetrieveRecordHandler(app registry.RecordRegistry, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		tenant := GetTenantFromContext(ctx)
		kind := chi.URLParam(r, "kind")
		identity := chi.URLParam(r, "identity")

		ctx, span := tracer.Start(ctx, "retrieve-record")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		traceID := traceIDFromSpan(span)

		err = authenticator.CheckAccess(ctx, r, tenant, []string{kind})
		if err != nil {
			mirrorerrors.ReportUnauthorizedRequest(w, "not authorized", traceID)
			return
		}

		record, err := app.Retrieve(ctx, tenant, kind, identity)
		if err != nil {
			reportRegistryError(w, err, traceID)
			return
		}

		response, _ := json.Marshal(struct {
			Fields    map[string]any `json:"fields"`
			CreatedAt time.Time      `json:"createdAt"`
			UpdatedAt time.Time      `json:"updatedAt"`
		}{
			Fields:    record.Fields,
			CreatedAt: record.CreatedAt,
			UpdatedAt: record.UpdatedAt,
		})

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}
}

// NewUpdateRecordHandler handles PATCH requests carrying a record diff
func NewUpdateRecordHandler(app registry.RecordRegistry, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		tenant := GetTenantFromContext(ctx)
		kind := chi.URLParam(r, "kind")
		identity := chi.URLParam(r, "identity")

		ctx, span := tracer.Start(ctx, "update-record")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		traceID := traceIDFromSpan(span)

		err = authenticator.CheckAccess(ctx, r, tenant, []string{kind})
		if err != nil {
			mirrorerrors.ReportUnauthorizedRequest(w, "not authorized", traceID)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			mirrorerrors.ReportNewBadRequestData(w, "unable to read request body", traceID)
			return
		}

		diff := struct {
			Set    map[string]any `json:"set"`
			Remove []string       `json:"remove"`
		}{}

		err = json.Unmarshal(body, &diff)
		if err != nil {
			mirrorerrors.ReportNewBadRequestData(
				w, fmt.Sprintf("unable to decode request payload: %s", err.Error()), traceID,
			)
			return
		}

		record, err := app.Update(ctx, tenant, kind, identity, diff.Set, diff.Remove)
		if err != nil {
			reportRegistryError(w, err, traceID)
			return
		}

		response, _ := json.Marshal(struct {
			UpdatedAt time.Time `json:"updatedAt"`
		}{
			UpdatedAt: record.UpdatedAt,
		})

		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(response)
	}
}

// NewDeleteRecordHandler handles DELETE requests for a single record
func NewDeleteRecordHandler(app registry.RecordRegistry, authenticator auth.Enticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()
		tenant := GetTenantFromContext(ctx)
		kind := chi.URLParam(r, "kind")
		identity := chi.URLParam(r, "identity")

		ctx, span := tracer.Start(ctx, "delete-record")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		traceID := traceIDFromSpan(span)

		err = authenticator.CheckAccess(ctx, r, tenant, []string{kind})
		if err != nil {
			mirrorerrors.ReportUnauthorizedRequest(w, "not authorized", traceID)
			return
		}

		err = app.Delete(ctx, tenant, kind, identity)
		if err != nil {
			reportRegistryError(w, err, traceID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
