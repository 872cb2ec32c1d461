// Package cloud implements a client for a Cognito authenticated appliance
// cloud that hands out signed MQTT connection URLs. Stoves reporting through
// such a gateway publish their thermocouple readings there, and the thermo
// package reads them from the returned connection.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang-jwt/jwt/v5"

	"endobit.io/app/log"
)

// Authenticator is the subset of the Cognito API used for login.
type Authenticator interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput,
		optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

// Client is a handle for the cloud API connection.
type Client struct {
	logger   *slog.Logger
	http     *http.Client
	username string
	password string
	baseURL  string
	region   string
	clientID string
	cognito  Authenticator

	mu           sync.Mutex
	idToken      string
	refreshToken string
	expires      time.Time
}

const defaultRegion = "us-west-2"

// tokenSlack is how long before expiry the ID token is refreshed.
const tokenSlack = time.Minute

// WithLogger is an option setting function for NewClient.
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger
	}
}

// Credentials is an option setting function for NewClient. It sets the
// account used to log in.
func Credentials(username, password string) func(*Client) {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// ClientID is an option setting function for NewClient. It sets the Cognito
// app client identifier.
func ClientID(id string) func(*Client) {
	return func(c *Client) {
		c.clientID = id
	}
}

// Region is an option setting function for NewClient. It sets the Cognito
// region.
func Region(region string) func(*Client) {
	return func(c *Client) {
		if region != "" {
			c.region = region
		}
	}
}

// URL is an option setting function for NewClient. It sets the API base URL
// used to request MQTT connections.
func URL(base string) func(*Client) {
	return func(c *Client) {
		c.baseURL = base
	}
}

// WithAuthenticator is an option setting function for NewClient. It replaces
// the Cognito client built from the default AWS configuration.
func WithAuthenticator(a Authenticator) func(*Client) {
	return func(c *Client) {
		c.cognito = a
	}
}

// NewClient logs in and returns a new connection or an error.
func NewClient(ctx context.Context, opts ...func(*Client)) (*Client, error) {
	client := Client{
		logger: slog.New(slog.DiscardHandler),
		http:   &http.Client{Timeout: 30 * time.Second},
		region: defaultRegion,
	}

	for _, o := range opts {
		o(&client)
	}

	if client.baseURL == "" {
		return nil, errors.New("no API URL")
	}

	if client.cognito == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}

		cfg.Region = client.region
		client.cognito = cognitoidentityprovider.NewFromConfig(cfg)
	}

	if err := client.login(ctx); err != nil {
		return nil, err
	}

	return &client, nil
}

type mqttResponse struct {
	ExpirationSeconds int    `json:"expirationSeconds"`
	ExpiresAt         int64  `json:"expiresAt"`
	SignedURL         string `json:"signedUrl"`
}

// MQTT requests a signed MQTT connection and returns client options for it.
// The ID token is refreshed first if it is about to expire.
func (c *Client) MQTT(ctx context.Context) (*mqtt.ClientOptions, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prod/mqtt-connections", http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch mqtt connection: %d", resp.StatusCode)
	}

	if err := c.logResponseBody(ctx, "prod/mqtt-connections", resp); err != nil {
		return nil, err
	}

	var data mqttResponse

	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if data.SignedURL == "" {
		return nil, errors.New("no signed URL in mqtt connection")
	}

	c.logger.Info("mqtt connection", "expires", time.Unix(data.ExpiresAt, 0))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(data.SignedURL)
	opts.OnConnectionLost = c.mqttConnectionLost

	return opts, nil
}

// logResponseBody makes a copy of the response body and logs it at the trace
// level. Because it consumes the body it replaces the original with the copy.
func (c *Client) logResponseBody(ctx context.Context, name string, resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	c.logger.Log(ctx, log.LevelTrace, "rx", "endpoint", name, "body", string(body))

	return nil
}

func (c *Client) mqttConnectionLost(_ mqtt.Client, err error) {
	c.logger.Error("connection lost", "error", err)
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.expires.IsZero() && time.Until(c.expires) < tokenSlack {
		if err := c.refresh(ctx); err != nil {
			return "", err
		}
	}

	return c.idToken, nil
}

func (c *Client) refresh(ctx context.Context) error {
	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": c.refreshToken,
		},
	}

	resp, err := c.cognito.InitiateAuth(ctx, input)
	if err != nil {
		return fmt.Errorf("cannot refresh: %w", err)
	}

	auth := resp.AuthenticationResult

	if auth == nil || auth.IdToken == nil {
		return errors.New("no ID token in authentication result")
	}

	c.idToken = aws.ToString(auth.IdToken)

	c.expires, err = tokenExpiry(c.logger, "id token", c.idToken)

	return err
}

func (c *Client) login(ctx context.Context) error {
	input := &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": c.username,
			"PASSWORD": c.password,
		},
	}

	resp, err := c.cognito.InitiateAuth(ctx, input)
	if err != nil {
		return fmt.Errorf("cannot initiate auth: %w", err)
	}

	auth := resp.AuthenticationResult

	if auth == nil || auth.IdToken == nil {
		return errors.New("no ID token in authentication result")
	}

	if auth.RefreshToken == nil {
		return errors.New("no refresh token in authentication result")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.idToken = *auth.IdToken
	c.refreshToken = *auth.RefreshToken // opaque, not JWT

	c.expires, err = tokenExpiry(c.logger, "id token", c.idToken)

	return err
}

// tokenExpiry reads the exp claim of an unverified JWT. A token without one
// returns the zero time.
func tokenExpiry(logger *slog.Logger, name, token string) (time.Time, error) {
	tokenData, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}

	exp, err := tokenData.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid claims in %s: %w", name, err)
	}

	if exp == nil {
		return time.Time{}, nil
	}

	logger.Info(name, "expires", exp.Time)

	return exp.Time, nil
}
