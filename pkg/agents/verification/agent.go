// Package verification implements the primary source verification agent. It
// confirms the clinician's NPI against the NPPES registry and reports which
// passport fields the lookup corroborates.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/credentio/credentio/pkg/evidence"
	"github.com/credentio/credentio/pkg/models"
	"github.com/credentio/credentio/pkg/protocol"
)

// Source names the registry consulted by this agent.
const Source = "https://npiregistry.cms.hhs.gov"

const defaultBaseURL = "https://npiregistry.cms.hhs.gov/api/"

var (
	// ErrNoNPI is returned when the passport carries no NPI to look up.
	ErrNoNPI = errors.New("no NPI present on passport enrollment practice locations")
	// ErrRegistryUnavailable is returned when the NPPES registry cannot be reached.
	ErrRegistryUnavailable = errors.New("NPPES registry unavailable")
)

type registryResponse struct {
	ResultCount int              `json:"result_count"`
	Results     []map[string]any `json:"results"`
}

// Agent performs the NPPES lookup over HTTP.
type Agent struct {
	baseURL string
	client  *http.Client
}

// NewAgent creates a verification agent. The config may override "base_url"
// for testing against a local registry stand-in.
func NewAgent(config map[string]any) *Agent {
	baseURL, _ := config["base_url"].(string)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Agent{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (a *Agent) Execute(ctx context.Context, run models.TaskRun, ectx protocol.ExecutionContext) (map[string]any, error) {
	logger := ectx.Logger.With("module", "verification_agent")

	if ectx.Passport == nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"passport is required to verify against NPPES", nil)
	}

	npi := ectx.Passport.FirstNPI()
	if npi == "" {
		return nil, protocol.NewExecutionError(protocol.FailureNotFound, ErrNoNPI.Error(), ErrNoNPI)
	}

	record, err := a.lookup(ctx, npi)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Verified NPI against NPPES",
		"workflow_id", run.WorkflowID,
		"npi", npi)

	return map[string]any{
		"status": "verified",
		"npi":    npi,
		"record": record,
		evidence.ResultFieldsKey: []string{
			"identity.legal_name",
			"enrollment.practice_locations",
		},
		evidence.ResultSourceKey: Source,
	}, nil
}

func (a *Agent) lookup(ctx context.Context, npi string) (map[string]any, error) {
	lookupURL := fmt.Sprintf("%s?version=2.1&number=%s", a.baseURL, url.QueryEscape(npi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, protocol.NewExecutionError(protocol.FailureTransient,
			"failed to build NPPES request", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, protocol.NewExecutionError(protocol.FailureTransient,
			"NPPES request failed", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, protocol.NewExecutionError(protocol.FailureTransient,
			fmt.Sprintf("NPPES registry returned status %d", resp.StatusCode), ErrRegistryUnavailable)
	}

	var body registryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, protocol.NewExecutionError(protocol.FailureInconsistent,
			"failed to decode NPPES response", err)
	}

	if body.ResultCount == 0 || len(body.Results) == 0 {
		return nil, protocol.NewExecutionError(protocol.FailureNotFound,
			fmt.Sprintf("NPI %s not found in NPPES registry", npi), nil)
	}

	return body.Results[0], nil
}
