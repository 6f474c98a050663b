// Package lensapi is a typed client for the Lens GraphQL API operations the
// publishing workflow needs.
package lensapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"lensfrens/go-backend/pkg/models"
)

const accessTokenHeader = "x-access-token"

type Options struct {
	URL        string
	HTTPClient *http.Client
	RPS        float64
	Burst      int
	Logger     *slog.Logger
}

type Client struct {
	gql     *graphql.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &Client{
		gql:     graphql.NewClient(strings.TrimSpace(opts.URL), graphql.WithHTTPClient(httpClient)),
		limiter: limiter,
		logger:  logger,
	}
}

func (c *Client) DefaultProfile(ctx context.Context, address string) (*models.Profile, error) {
	var resp struct {
		DefaultProfile *models.Profile `json:"defaultProfile"`
	}
	req := graphql.NewRequest(queryDefaultProfile)
	req.Var("address", address)
	if err := c.run(ctx, "defaultProfile", req, &resp); err != nil {
		return nil, err
	}
	return resp.DefaultProfile, nil
}

func (c *Client) Challenge(ctx context.Context, address string) (string, error) {
	var resp struct {
		Challenge struct {
			Text string `json:"text"`
		} `json:"challenge"`
	}
	req := graphql.NewRequest(queryChallenge)
	req.Var("address", address)
	if err := c.run(ctx, "challenge", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Challenge.Text) == "" {
		return "", wrapError("challenge", ErrEmptyResponse)
	}
	return resp.Challenge.Text, nil
}

func (c *Client) Authenticate(ctx context.Context, address, signature string) (models.Session, error) {
	var resp struct {
		Authenticate models.Session `json:"authenticate"`
	}
	req := graphql.NewRequest(mutationAuthenticate)
	req.Var("address", address)
	req.Var("signature", signature)
	if err := c.run(ctx, "authenticate", req, &resp); err != nil {
		return models.Session{}, err
	}
	if !resp.Authenticate.Valid() {
		return models.Session{}, wrapError("authenticate", ErrEmptyResponse)
	}
	return resp.Authenticate, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (models.Session, error) {
	var resp struct {
		Refresh models.Session `json:"refresh"`
	}
	req := graphql.NewRequest(mutationRefresh)
	req.Var("refreshToken", refreshToken)
	if err := c.run(ctx, "refresh", req, &resp); err != nil {
		return models.Session{}, err
	}
	if !resp.Refresh.Valid() {
		return models.Session{}, wrapError("refresh", ErrEmptyResponse)
	}
	return resp.Refresh, nil
}

func (c *Client) VerifyAccessToken(ctx context.Context, accessToken string) (bool, error) {
	var resp struct {
		Verify bool `json:"verify"`
	}
	req := graphql.NewRequest(queryVerify)
	req.Var("accessToken", accessToken)
	if err := c.run(ctx, "verify", req, &resp); err != nil {
		return false, err
	}
	return resp.Verify, nil
}

// Dispatcher returns the profile's dispatcher, or nil when none is set.
func (c *Client) Dispatcher(ctx context.Context, profileID string) (*models.DispatcherStatus, error) {
	var resp struct {
		Profile *struct {
			ID         string                   `json:"id"`
			Dispatcher *models.DispatcherStatus `json:"dispatcher"`
		} `json:"profile"`
	}
	req := graphql.NewRequest(queryProfileDispatcher)
	req.Var("profileId", profileID)
	if err := c.run(ctx, "profile", req, &resp); err != nil {
		return nil, err
	}
	if resp.Profile == nil {
		return nil, wrapError("profile", ErrEmptyResponse)
	}
	return resp.Profile.Dispatcher, nil
}

func (c *Client) CreateSetDispatcherTypedData(ctx context.Context, accessToken string, request models.SetDispatcherRequest) (*models.TypedDataResult, error) {
	var resp struct {
		Result *models.TypedDataResult `json:"createSetDispatcherTypedData"`
	}
	if err := c.runTypedData(ctx, "createSetDispatcherTypedData", mutationCreateSetDispatcherTypedData, accessToken, request, &resp); err != nil {
		return nil, err
	}
	return c.typedDataResult("createSetDispatcherTypedData", resp.Result, "SetDispatcherWithSig")
}

func (c *Client) CreatePostTypedData(ctx context.Context, accessToken string, request models.CreatePostRequest) (*models.TypedDataResult, error) {
	var resp struct {
		Result *models.TypedDataResult `json:"createPostTypedData"`
	}
	if err := c.runTypedData(ctx, "createPostTypedData", mutationCreatePostTypedData, accessToken, request, &resp); err != nil {
		return nil, err
	}
	return c.typedDataResult("createPostTypedData", resp.Result, "PostWithSig")
}

func (c *Client) ValidateMetadata(ctx context.Context, metadata models.Metadata) (models.MetadataValidation, error) {
	var resp struct {
		Validate models.MetadataValidation `json:"validatePublicationMetadata"`
	}
	req := graphql.NewRequest(queryValidatePublicationMetadata)
	req.Var("metadatav2", metadata)
	if err := c.run(ctx, "validatePublicationMetadata", req, &resp); err != nil {
		return models.MetadataValidation{}, err
	}
	return resp.Validate, nil
}

func (c *Client) runTypedData(ctx context.Context, operation, query, accessToken string, request, resp any) error {
	if strings.TrimSpace(accessToken) == "" {
		return wrapError(operation, ErrUnauthenticated)
	}
	req := graphql.NewRequest(query)
	req.Var("request", request)
	req.Header.Set(accessTokenHeader, "Bearer "+accessToken)
	return c.run(ctx, operation, req, resp)
}

func (c *Client) typedDataResult(operation string, result *models.TypedDataResult, primaryType string) (*models.TypedDataResult, error) {
	if result == nil || len(result.TypedData.Types[primaryType]) == 0 {
		return nil, wrapError(operation, ErrEmptyResponse)
	}
	result.TypedData.PrimaryType = primaryType
	return result, nil
}

func (c *Client) run(ctx context.Context, operation string, req *graphql.Request, resp any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return wrapError(operation, err)
		}
	}
	started := time.Now()
	err := c.gql.Run(ctx, req, resp)
	latency := time.Since(started).Milliseconds()
	if err != nil {
		c.logger.Debug("lens api call failed", "operation", operation, "latency_ms", latency, "error", err.Error())
		return wrapError(operation, err)
	}
	c.logger.Debug("lens api call", "operation", operation, "latency_ms", latency)
	return nil
}
