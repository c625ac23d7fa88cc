package nakama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/heroiclabs/nakama-common/api"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"unosync/internal/domain"
	"unosync/internal/ports"
)

var (
	marshalOpts   = protojson.MarshalOptions{UseProtoNames: true}
	unmarshalOpts = protojson.UnmarshalOptions{DiscardUnknown: true}
)

// Client talks to the Nakama HTTP API.
type Client struct {
	baseURL    string
	serverKey  string
	httpClient *http.Client
}

var _ ports.AuthPort = (*Client)(nil)

// NewClient creates a client for baseURL, e.g. http://localhost:7350.
func NewClient(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// AuthenticateDevice logs in with a device id and returns the session. The
// user id and username come from the session token claims.
func (c *Client) AuthenticateDevice(ctx context.Context, deviceID, username string, create bool) (*ports.Session, error) {
	params := url.Values{}
	params.Set("create", strconv.FormatBool(create))
	if username != "" {
		params.Set("username", username)
	}

	body, err := marshalOpts.Marshal(&api.AccountDevice{Id: deviceID})
	if err != nil {
		return nil, fmt.Errorf("nakama.AuthenticateDevice: %w", err)
	}

	var session api.Session
	err = c.doRequest(ctx, http.MethodPost, "/v2/account/authenticate/device?"+params.Encode(), body, c.basicAuth, &session)
	if err != nil {
		return nil, fmt.Errorf("nakama.AuthenticateDevice: %w", err)
	}
	return sessionFromAPI(&session)
}

func sessionFromAPI(s *api.Session) (*ports.Session, error) {
	claims, err := ParseSessionToken(s.GetToken())
	if err != nil {
		return nil, fmt.Errorf("nakama.AuthenticateDevice: %w", err)
	}
	return &ports.Session{
		Token:        s.GetToken(),
		RefreshToken: s.GetRefreshToken(),
		UserID:       claims.UserID,
		Username:     claims.Username,
		Created:      s.GetCreated(),
	}, nil
}

// RPC calls a server RPC. payload is sent as a JSON string, which is how the
// HTTP gateway expects RPC bodies.
func (c *Client) RPC(ctx context.Context, session *ports.Session, id, payload string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("nakama.RPC: %w", err)
	}
	var rpc api.Rpc
	err = c.doRequest(ctx, http.MethodPost, "/v2/rpc/"+url.PathEscape(id), body, bearer(session), &rpc)
	if err != nil {
		return "", fmt.Errorf("nakama.RPC %s: %w", id, err)
	}
	return rpc.GetPayload(), nil
}

type botSettings struct {
	AllowBots  bool `json:"allowBots"`
	BotTimeout int  `json:"botTimeout"`
}

type createMatchRequest struct {
	domain.ModeConfig
	BotSettings botSettings `json:"botSettings"`
}

type createMatchResponse struct {
	Success bool   `json:"success"`
	MatchID string `json:"match_id"`
	Error   string `json:"error"`
}

// CreateMatch calls the create match RPC for mode.
func (c *Client) CreateMatch(ctx context.Context, session *ports.Session, mode domain.ModeConfig) (string, error) {
	req, err := json.Marshal(createMatchRequest{
		ModeConfig:  mode,
		BotSettings: botSettings{AllowBots: true, BotTimeout: 5},
	})
	if err != nil {
		return "", fmt.Errorf("nakama.CreateMatch: %w", err)
	}
	payload, err := c.RPC(ctx, session, domain.RpcCreateMatch, string(req))
	if err != nil {
		return "", fmt.Errorf("nakama.CreateMatch: %w", err)
	}

	var res createMatchResponse
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return "", fmt.Errorf("nakama.CreateMatch: decode payload: %w", err)
	}
	if !res.Success || res.MatchID == "" {
		return "", fmt.Errorf("nakama.CreateMatch: %s", res.Error)
	}
	return res.MatchID, nil
}

func (c *Client) basicAuth(req *http.Request) {
	req.SetBasicAuth(c.serverKey, "")
}

func bearer(session *ports.Session) func(*http.Request) {
	return func(req *http.Request) {
		if session != nil && session.Token != "" {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		}
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, auth func(*http.Request), out proto.Message) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Message != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
			}
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := unmarshalOpts.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
