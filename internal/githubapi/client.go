package githubapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURLConstant                   = "https://api.github.com"
	defaultUserAgentConstant                 = "ghfollow"
	defaultRequestTimeoutConstant            = 30 * time.Second
	defaultBreakerOpenTimeoutConstant        = 30 * time.Second
	defaultRequestBurstConstant              = 1
	maximumPageSizeConstant                  = 100
	circuitBreakerNameConstant               = "github-api"
	authorizationHeaderNameConstant          = "Authorization"
	authorizationHeaderTemplateConstant      = "Bearer %s"
	acceptHeaderNameConstant                 = "Accept"
	acceptHeaderValueConstant                = "application/vnd.github+json"
	apiVersionHeaderNameConstant             = "X-GitHub-Api-Version"
	apiVersionHeaderValueConstant            = "2022-11-28"
	userAgentHeaderNameConstant              = "User-Agent"
	rateLimitRemainingHeaderNameConstant     = "X-RateLimit-Remaining"
	rateLimitExhaustedValueConstant          = "0"
	pageQueryParameterConstant               = "page"
	perPageQueryParameterConstant            = "per_page"
	authenticatedUserPathConstant            = "/user"
	followingPathConstant                    = "/user/following"
	followersPathConstant                    = "/user/followers"
	followingAccountPathTemplateConstant     = "/user/following/%s"
	accountFollowersPathTemplateConstant     = "/users/%s/followers"
	accountFieldNameConstant                 = "account"
	pageFieldNameConstant                    = "page"
	pageSizeFieldNameConstant                = "page_size"
	baseURLFieldNameConstant                 = "base_url"
	requiredValueMessageConstant             = "value required"
	positiveValueMessageConstant             = "must be at least 1"
	pageSizeRangeMessageConstant             = "must be between 1 and 100"
	invalidBaseURLMessageTemplateConstant    = "invalid base url: %v"
	requestLogMessageConstant                = "GitHub API request"
	breakerStateChangeLogMessageConstant     = "GitHub API circuit breaker state changed"
	operationLogFieldConstant                = "operation"
	methodLogFieldConstant                   = "method"
	pathLogFieldConstant                     = "path"
	statusLogFieldConstant                   = "status"
	breakerFromStateLogFieldConstant         = "from"
	breakerToStateLogFieldConstant           = "to"
	getAuthenticatedAccountOperationConstant = OperationName("GetAuthenticatedAccount")
	listFollowingOperationConstant           = OperationName("ListFollowing")
	listFollowersOperationConstant           = OperationName("ListFollowers")
	listFollowersOfOperationConstant         = OperationName("ListFollowersOf")
	followOperationConstant                  = OperationName("Follow")
	unfollowOperationConstant                = OperationName("Unfollow")
	isFollowingOperationConstant             = OperationName("IsFollowing")
)

// HTTPClient executes HTTP requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ServiceConfiguration describes how the client reaches GitHub.
type ServiceConfiguration struct {
	BaseURL                 string
	Token                   string
	UserAgent               string
	RequestTimeout          time.Duration
	RequestsPerSecond       float64
	RequestBurst            int
	BreakerFailureThreshold uint32
	BreakerOpenTimeout      time.Duration
}

// Client calls the GitHub REST API on behalf of the authenticated user.
type Client struct {
	logger     *zap.Logger
	httpClient HTTPClient
	baseURL    *url.URL
	token      string
	userAgent  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

type accountResponse struct {
	Login string `json:"login"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type apiResponse struct {
	statusCode int
	body       []byte
}

// NewClient constructs a GitHub REST client.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration ServiceConfiguration) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	token := strings.TrimSpace(configuration.Token)
	if len(token) == 0 {
		return nil, ErrTokenNotConfigured
	}

	baseURLValue := strings.TrimSpace(configuration.BaseURL)
	if len(baseURLValue) == 0 {
		baseURLValue = defaultBaseURLConstant
	}
	parsedBaseURL, parseError := url.Parse(strings.TrimRight(baseURLValue, "/"))
	if parseError != nil || len(parsedBaseURL.Scheme) == 0 || len(parsedBaseURL.Host) == 0 {
		return nil, InvalidInputError{FieldName: baseURLFieldNameConstant, Message: fmt.Sprintf(invalidBaseURLMessageTemplateConstant, baseURLValue)}
	}

	if httpClient == nil {
		requestTimeout := configuration.RequestTimeout
		if requestTimeout <= 0 {
			requestTimeout = defaultRequestTimeoutConstant
		}
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	userAgent := strings.TrimSpace(configuration.UserAgent)
	if len(userAgent) == 0 {
		userAgent = defaultUserAgentConstant
	}

	return &Client{
		logger:     logger,
		httpClient: httpClient,
		baseURL:    parsedBaseURL,
		token:      token,
		userAgent:  userAgent,
		limiter:    newRequestLimiter(configuration.RequestsPerSecond, configuration.RequestBurst),
		breaker:    newCircuitBreaker(logger, configuration.BreakerFailureThreshold, configuration.BreakerOpenTimeout),
	}, nil
}

// GetAuthenticatedAccount returns the login that owns the bearer token.
func (client *Client) GetAuthenticatedAccount(executionContext context.Context) (string, error) {
	response, requestError := client.execute(executionContext, getAuthenticatedAccountOperationConstant, http.MethodGet, authenticatedUserPathConstant, nil)
	if requestError != nil {
		return "", requestError
	}

	var account accountResponse
	if decodingError := json.Unmarshal(response.body, &account); decodingError != nil {
		return "", ResponseDecodingError{Operation: getAuthenticatedAccountOperationConstant, Cause: decodingError}
	}
	if len(strings.TrimSpace(account.Login)) == 0 {
		return "", ResponseDecodingError{Operation: getAuthenticatedAccountOperationConstant, Cause: errors.New("login missing")}
	}
	return account.Login, nil
}

// ListFollowing returns one page of accounts the authenticated user follows.
func (client *Client) ListFollowing(executionContext context.Context, page int, pageSize int) ([]string, error) {
	return client.listAccounts(executionContext, listFollowingOperationConstant, followingPathConstant, page, pageSize)
}

// ListFollowers returns one page of accounts following the authenticated user.
func (client *Client) ListFollowers(executionContext context.Context, page int, pageSize int) ([]string, error) {
	return client.listAccounts(executionContext, listFollowersOperationConstant, followersPathConstant, page, pageSize)
}

// ListFollowersOf returns one page of accounts following the given account.
func (client *Client) ListFollowersOf(executionContext context.Context, account string, page int, pageSize int) ([]string, error) {
	accountPath, pathError := accountScopedPath(accountFollowersPathTemplateConstant, account)
	if pathError != nil {
		return nil, pathError
	}
	return client.listAccounts(executionContext, listFollowersOfOperationConstant, accountPath, page, pageSize)
}

// Follow makes the authenticated user follow account.
func (client *Client) Follow(executionContext context.Context, account string) error {
	accountPath, pathError := accountScopedPath(followingAccountPathTemplateConstant, account)
	if pathError != nil {
		return pathError
	}
	_, requestError := client.execute(executionContext, followOperationConstant, http.MethodPut, accountPath, nil)
	return requestError
}

// Unfollow makes the authenticated user stop following account.
func (client *Client) Unfollow(executionContext context.Context, account string) error {
	accountPath, pathError := accountScopedPath(followingAccountPathTemplateConstant, account)
	if pathError != nil {
		return pathError
	}
	_, requestError := client.execute(executionContext, unfollowOperationConstant, http.MethodDelete, accountPath, nil)
	return requestError
}

// IsFollowing reports whether the authenticated user already follows account.
func (client *Client) IsFollowing(executionContext context.Context, account string) (bool, error) {
	accountPath, pathError := accountScopedPath(followingAccountPathTemplateConstant, account)
	if pathError != nil {
		return false, pathError
	}

	response, requestError := client.execute(executionContext, isFollowingOperationConstant, http.MethodGet, accountPath, nil)
	if requestError != nil {
		var statusError StatusError
		if errors.As(requestError, &statusError) && statusError.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, requestError
	}
	return response.statusCode == http.StatusNoContent, nil
}

func (client *Client) listAccounts(executionContext context.Context, operation OperationName, endpointPath string, page int, pageSize int) ([]string, error) {
	if page < 1 {
		return nil, InvalidInputError{FieldName: pageFieldNameConstant, Message: positiveValueMessageConstant}
	}
	if pageSize < 1 || pageSize > maximumPageSizeConstant {
		return nil, InvalidInputError{FieldName: pageSizeFieldNameConstant, Message: pageSizeRangeMessageConstant}
	}

	query := url.Values{}
	query.Set(perPageQueryParameterConstant, strconv.Itoa(pageSize))
	query.Set(pageQueryParameterConstant, strconv.Itoa(page))

	response, requestError := client.execute(executionContext, operation, http.MethodGet, endpointPath, query)
	if requestError != nil {
		return nil, requestError
	}

	var accounts []accountResponse
	if decodingError := json.Unmarshal(response.body, &accounts); decodingError != nil {
		return nil, ResponseDecodingError{Operation: operation, Cause: decodingError}
	}

	logins := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if len(account.Login) == 0 {
			continue
		}
		logins = append(logins, account.Login)
	}
	return logins, nil
}

func (client *Client) execute(executionContext context.Context, operation OperationName, method string, endpointPath string, query url.Values) (apiResponse, error) {
	if waitError := client.limiter.Wait(executionContext); waitError != nil {
		return apiResponse{}, OperationError{Operation: operation, Cause: waitError}
	}

	result, executionError := client.breaker.Execute(func() (interface{}, error) {
		return client.send(executionContext, operation, method, endpointPath, query)
	})
	if executionError != nil {
		var operationError OperationError
		if errors.As(executionError, &operationError) {
			return apiResponse{}, executionError
		}
		return apiResponse{}, OperationError{Operation: operation, Cause: executionError}
	}

	return result.(apiResponse), nil
}

func (client *Client) send(executionContext context.Context, operation OperationName, method string, endpointPath string, query url.Values) (apiResponse, error) {
	requestURL := client.baseURL.String() + endpointPath
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	request, requestError := http.NewRequestWithContext(executionContext, method, requestURL, nil)
	if requestError != nil {
		return apiResponse{}, OperationError{Operation: operation, Cause: requestError}
	}
	request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(authorizationHeaderTemplateConstant, client.token))
	request.Header.Set(acceptHeaderNameConstant, acceptHeaderValueConstant)
	request.Header.Set(apiVersionHeaderNameConstant, apiVersionHeaderValueConstant)
	request.Header.Set(userAgentHeaderNameConstant, client.userAgent)

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return apiResponse{}, OperationError{Operation: operation, Cause: responseError}
	}
	defer response.Body.Close()

	body, readError := io.ReadAll(response.Body)
	if readError != nil {
		return apiResponse{}, OperationError{Operation: operation, Cause: readError}
	}

	client.logger.Debug(
		requestLogMessageConstant,
		zap.String(operationLogFieldConstant, string(operation)),
		zap.String(methodLogFieldConstant, method),
		zap.String(pathLogFieldConstant, endpointPath),
		zap.Int(statusLogFieldConstant, response.StatusCode),
	)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return apiResponse{}, OperationError{Operation: operation, Cause: newStatusError(operation, response, body)}
	}

	return apiResponse{statusCode: response.StatusCode, body: body}, nil
}

func newStatusError(operation OperationName, response *http.Response, body []byte) StatusError {
	message := ""
	var decodedError errorResponse
	if json.Unmarshal(body, &decodedError) == nil {
		message = decodedError.Message
	}

	rateLimited := response.StatusCode == http.StatusTooManyRequests ||
		(response.StatusCode == http.StatusForbidden && response.Header.Get(rateLimitRemainingHeaderNameConstant) == rateLimitExhaustedValueConstant)

	return StatusError{
		Operation:   operation,
		StatusCode:  response.StatusCode,
		Message:     message,
		RateLimited: rateLimited,
	}
}

func accountScopedPath(template string, account string) (string, error) {
	trimmedAccount := strings.TrimSpace(account)
	if len(trimmedAccount) == 0 {
		return "", InvalidInputError{FieldName: accountFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return fmt.Sprintf(template, url.PathEscape(trimmedAccount)), nil
}

func newRequestLimiter(requestsPerSecond float64, requestBurst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, defaultRequestBurstConstant)
	}
	if requestBurst < 1 {
		requestBurst = defaultRequestBurstConstant
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
}

func newCircuitBreaker(logger *zap.Logger, failureThreshold uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker {
	if openTimeout <= 0 {
		openTimeout = defaultBreakerOpenTimeoutConstant
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    circuitBreakerNameConstant,
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if failureThreshold == 0 {
				return false
			}
			return counts.ConsecutiveFailures >= failureThreshold
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				breakerStateChangeLogMessageConstant,
				zap.String(breakerFromStateLogFieldConstant, from.String()),
				zap.String(breakerToStateLogFieldConstant, to.String()),
			)
		},
	})
}

// isBreakerSuccess treats client errors other than throttling as healthy responses.
func isBreakerSuccess(requestError error) bool {
	if requestError == nil {
		return true
	}
	if errors.Is(requestError, context.Canceled) {
		return true
	}

	var statusError StatusError
	if !errors.As(requestError, &statusError) {
		return false
	}
	if statusError.RateLimited {
		return false
	}
	return statusError.StatusCode < http.StatusInternalServerError
}
