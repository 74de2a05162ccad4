package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/diwise/record-mirror/pkg/mirror"
	"github.com/diwise/record-mirror/pkg/mirror/entities"
	"github.com/diwise/record-mirror/pkg/mirror/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTenant string = "default"

const (
	TraceAttributeKind     string = "record-kind"
	TraceAttributeIdentity string = "record-identity"
	TraceAttributeTenant   string = "datastore-tenant"
)

var tracer = otel.Tracer("record-mirror-client")

func Debug(enabled string) func(*rsClient) {
	return func(c *rsClient) {
		c.debug = (enabled == "true")
	}
}

func Tenant(tenant string) func(*rsClient) {
	return func(c *rsClient) {
		c.tenant = tenant
	}
}

// NewRemoteStoreClient creates a RemoteStore backed by a record store
// service at the given base URL.
func NewRemoteStoreClient(baseURL string, options ...func(*rsClient)) mirror.RemoteStore {
	c := &rsClient{
		baseURL: baseURL,
		tenant:  DefaultTenant,
		debug:   false,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

type rsClient struct {
	baseURL string
	tenant  string
	debug   bool
}

func (c rsClient) Create(ctx context.Context, kind string, cs *entities.Changeset) (*mirror.CreateResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeKind, kind)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	payload, err := json.Marshal(encodeFields(cs))
	if err != nil {
		return nil, fmt.Errorf("failed to encode record fields: %w", err)
	}

	response, responseBody, err := c.callRecordStore(
		ctx, http.MethodPost, c.baseURL+"/datastore/v1/records/"+url.PathEscape(kind), bytes.NewBuffer(payload),
	)

	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		err = errors.NewErrorFromProblemReport(response.StatusCode, response.Header.Get("Content-Type"), responseBody)
		return nil, err
	}

	if response.StatusCode != http.StatusCreated {
		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrInternal)
		return nil, err
	}

	record := struct {
		Identity  string    `json:"identity"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}{}

	err = json.Unmarshal(responseBody, &record)
	if err != nil {
		err = fmt.Errorf("failed to decode create response: %s (%w)", err.Error(), errors.ErrRemote)
		return nil, err
	}

	return mirror.NewCreateResult(record.Identity, record.CreatedAt, record.UpdatedAt), nil
}

func (c rsClient) Update(ctx context.Context, kind, identity string, cs *entities.Changeset) (*mirror.UpdateResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "update-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeKind, kind)),
		trace.WithAttributes(attribute.String(TraceAttributeIdentity, identity)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	diff := struct {
		Set    map[string]any `json:"set"`
		Remove []string       `json:"remove,omitempty"`
	}{
		Set:    encodeFields(cs),
		Remove: cs.Removals,
	}

	payload, err := json.Marshal(&diff)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record diff: %w", err)
	}

	response, responseBody, err := c.callRecordStore(
		ctx, http.MethodPatch,
		c.baseURL+"/datastore/v1/records/"+url.PathEscape(kind)+"/"+url.PathEscape(identity),
		bytes.NewBuffer(payload),
	)

	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		err = errors.NewErrorFromProblemReport(response.StatusCode, response.Header.Get("Content-Type"), responseBody)
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrInternal)
		return nil, err
	}

	record := struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}{}

	err = json.Unmarshal(responseBody, &record)
	if err != nil {
		err = fmt.Errorf("failed to decode update response: %s (%w)", err.Error(), errors.ErrRemote)
		return nil, err
	}

	return mirror.NewUpdateResult(record.UpdatedAt), nil
}

func (c rsClient) Delete(ctx context.Context, kind, identity string) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeKind, kind)),
		trace.WithAttributes(attribute.String(TraceAttributeIdentity, identity)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callRecordStore(
		ctx, http.MethodDelete,
		c.baseURL+"/datastore/v1/records/"+url.PathEscape(kind)+"/"+url.PathEscape(identity),
		nil,
	)

	if err != nil {
		return err
	}

	if response.StatusCode != http.StatusNoContent {
		if response.StatusCode >= http.StatusBadRequest {
			err = errors.NewErrorFromProblemReport(response.StatusCode, response.Header.Get("Content-Type"), responseBody)
			return err
		}

		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrInternal)
		return err
	}

	return nil
}

func (c rsClient) Fetch(ctx context.Context, kind, identity string) (*mirror.FetchResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "fetch-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeKind, kind)),
		trace.WithAttributes(attribute.String(TraceAttributeIdentity, identity)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callRecordStore(
		ctx, http.MethodGet,
		c.baseURL+"/datastore/v1/records/"+url.PathEscape(kind)+"/"+url.PathEscape(identity),
		nil,
	)

	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		if response.StatusCode >= http.StatusBadRequest {
			err = errors.NewErrorFromProblemReport(response.StatusCode, response.Header.Get("Content-Type"), responseBody)
			return nil, err
		}

		err = fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, errors.ErrInternal)
		return nil, err
	}

	record := struct {
		Fields    map[string]any `json:"fields"`
		CreatedAt time.Time      `json:"createdAt"`
		UpdatedAt time.Time      `json:"updatedAt"`
	}{}

	err = json.Unmarshal(responseBody, &record)
	if err != nil {
		err = fmt.Errorf("failed to decode fetch response: %s (%w)", err.Error(), errors.ErrRemote)
		return nil, err
	}

	fields, err := decodeFields(record.Fields)
	if err != nil {
		return nil, err
	}

	return mirror.NewFetchResult(fields, record.CreatedAt, record.UpdatedAt), nil
}

func (c rsClient) callRecordStore(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, []byte, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	if c.tenant != DefaultTenant {
		req.Header.Add("Datastore-Tenant", c.tenant)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.NewRemoteError(fmt.Sprintf("failed to send request: %s", err.Error()), err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.NewRemoteError(fmt.Sprintf("failed to read response body: %s", err.Error()), err)
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusNotFound {
			reqbytes, _ := httputil.DumpRequest(req, false)
			respbytes, _ := httputil.DumpResponse(resp, false)

			log := logging.GetFromContext(ctx)
			log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
		}
	}

	return resp, respBody, nil
}
