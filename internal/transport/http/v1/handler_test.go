package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/domain"
	"github.com/xiaot623/gogo/callcontrol/internal/policy"
	"github.com/xiaot623/gogo/callcontrol/internal/service"
	"github.com/xiaot623/gogo/callcontrol/tests/helpers"
)

type testEnv struct {
	handler  *Handler
	svc      *service.Service
	store    *helpers.FlakyStore
	runner   *helpers.FakeRunner
	notifier *helpers.FakeNotifier
}

func newTestHandler(t *testing.T) *testEnv {
	t.Helper()
	return newTestHandlerWithPolicy(t, policy.DefaultPolicy)
}

func newTestHandlerWithPolicy(t *testing.T, src string) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Trunk:            "twilio-endpoint",
		DefaultContext:   "outbound-ai-test",
		DefaultExtension: "s",
		EngineTimeout:    time.Second,
		NotifyTimeout:    time.Second,
	}
	policyEngine, err := policy.NewEngine(context.Background(), src)
	require.NoError(t, err)

	env := &testEnv{
		store:    helpers.NewFlakyStore(helpers.NewTestFileStore(t)),
		runner:   &helpers.FakeRunner{},
		notifier: &helpers.FakeNotifier{},
	}
	env.svc = service.New(env.store, env.runner, env.notifier, cfg, policyEngine)
	env.handler = NewHandler(env.svc)
	return env
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func (env *testEnv) placeCall(t *testing.T, body string) (*httptest.ResponseRecorder, domain.CallResponse) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/call", body), rec)
	require.NoError(t, env.handler.PlaceCall(c))

	var resp domain.CallResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func (env *testEnv) getConversation(t *testing.T, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/conversation/"+sessionID, nil), rec)
	c.SetPath("/conversation/:session_id")
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	require.NoError(t, env.handler.GetConversation(c))
	return rec
}

func TestPlaceCallSuccess(t *testing.T) {
	env := newTestHandler(t)

	rec, resp := env.placeCall(t, `{"phoneNumber":"+1 (775) 618-7988","script":"Hello there","callbackUrl":"https://example.com/cb"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Call initiated successfully", resp.Message)
	assert.Equal(t, "+17756187988", resp.PhoneNumber)
	assert.Equal(t, "Hello there", resp.Script)
	assert.Equal(t, "https://example.com/cb", resp.CallbackURL)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Note, resp.SessionID)
	assert.Len(t, env.runner.Commands(), 1)
}

func TestPlaceCallValidation(t *testing.T) {
	env := newTestHandler(t)

	t.Run("missing phoneNumber", func(t *testing.T) {
		rec, _ := env.placeCall(t, `{"script":"hi"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "phoneNumber")
	})

	t.Run("missing script", func(t *testing.T) {
		rec, _ := env.placeCall(t, `{"phoneNumber":"+15551234567"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "script")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec, _ := env.placeCall(t, `{"phoneNumber":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Zero(t, env.store.PutCalls())
	assert.Empty(t, env.runner.Commands())
}

func TestPlaceCallPolicyBlocked(t *testing.T) {
	env := newTestHandlerWithPolicy(t, helpers.RestrictedDialPolicy)
	rec, _ := env.placeCall(t, `{"phoneNumber":"+19005550100","script":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, env.store.PutCalls())
	assert.Empty(t, env.runner.Commands())
}

func TestPlaceCallDefaultPolicyAllowsShortNumber(t *testing.T) {
	env := newTestHandler(t)
	rec, resp := env.placeCall(t, `{"phoneNumber":"12","script":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12", resp.PhoneNumber)
	assert.Len(t, env.runner.Commands(), 1)
}

func TestPlaceCallDispatchFailure(t *testing.T) {
	env := newTestHandler(t)
	env.runner.Handler = helpers.RejectingRunner(domain.DispatchCauseRejected, "engine rejected command: Originate failed")

	rec, _ := env.placeCall(t, `{"phoneNumber":"+15551234567","script":"keep me"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DispatchError", body["error"])
	assert.Equal(t, "rejected", body["cause"])
	require.NotEmpty(t, body["sessionId"])

	getRec := env.getConversation(t, body["sessionId"])
	assert.Equal(t, http.StatusOK, getRec.Code)
	var session domain.CallSession
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &session))
	assert.Equal(t, "keep me", session.Script)
	assert.Equal(t, "+15551234567", session.PhoneNumber)
}

func TestPlaceCallTimeoutCause(t *testing.T) {
	env := newTestHandler(t)
	env.runner.Handler = func(context.Context, asterisk.Command) (*asterisk.Output, error) {
		return nil, &domain.DispatchError{Cause: domain.DispatchCauseTimeout, Message: "engine did not respond in time"}
	}

	rec, _ := env.placeCall(t, `{"phoneNumber":"+15551234567","script":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cause":"timeout"`)
}

func TestConversationRoundTrip(t *testing.T) {
	env := newTestHandler(t)
	script := "hello'; rm -rf /; echo '"

	body, err := json.Marshal(map[string]string{"phoneNumber": "+15551234567", "script": script})
	require.NoError(t, err)
	rec, resp := env.placeCall(t, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	getRec := env.getConversation(t, resp.SessionID)
	require.Equal(t, http.StatusOK, getRec.Code)

	var session domain.CallSession
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &session))
	assert.Equal(t, script, session.Script)
	assert.Equal(t, resp.SessionID, session.SessionID)
	assert.Equal(t, domain.SessionStatusPending, session.Status)
	assert.NotNil(t, session.Conversation)
}

func TestGetConversationNotFound(t *testing.T) {
	env := newTestHandler(t)
	rec := env.getConversation(t, "call_doesnotexist")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NotFound")
}

func TestGetConversationReadErrorHidesPath(t *testing.T) {
	env := newTestHandler(t)
	env.store.FailGets(true)

	rec := env.getConversation(t, "call_any")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "StorageReadError")
	assert.NotContains(t, rec.Body.String(), "/var/lib")
}

func TestAppendAndCompleteConversation(t *testing.T) {
	env := newTestHandler(t)
	e := echo.New()
	_, resp := env.placeCall(t, `{"phoneNumber":"+15551234567","script":"hi","callbackUrl":"https://example.com/cb"}`)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/conversation/"+resp.SessionID+"/entries",
		`{"entries":[{"role":"agent","text":"Hello"},{"role":"user","text":"Hi"}]}`), rec)
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	require.NoError(t, env.handler.AppendEntries(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/conversation/"+resp.SessionID+"/complete", `{"reason":"hangup"}`), rec)
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	require.NoError(t, env.handler.CompleteConversation(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var session domain.CallSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, domain.SessionStatusCompleted, session.Status)
	assert.Len(t, session.Conversation, 2)

	env.svc.Wait()
	require.Len(t, env.notifier.Sessions(), 1)

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/conversation/"+resp.SessionID+"/complete", `{}`), rec)
	c.SetParamNames("session_id")
	c.SetParamValues(resp.SessionID)
	require.NoError(t, env.handler.CompleteConversation(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListChannels(t *testing.T) {
	env := newTestHandler(t)
	env.runner.Handler = func(context.Context, asterisk.Command) (*asterisk.Output, error) {
		return &asterisk.Output{Stdout: "PJSIP/twilio-0001!outbound-ai-test!s!1!Up"}, nil
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/calls", nil), rec)
	require.NoError(t, env.handler.ListChannels(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.ChannelsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PJSIP/twilio-0001!outbound-ai-test!s!1!Up", resp.Channels)
}

func TestListChannelsEngineError(t *testing.T) {
	env := newTestHandler(t)
	env.runner.Handler = helpers.RejectingRunner(domain.DispatchCauseUnreachable, "engine unreachable")

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/calls", nil), rec)
	require.NoError(t, env.handler.ListChannels(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHangup(t *testing.T) {
	env := newTestHandler(t)
	e := echo.New()

	t.Run("missing channel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/hangup", `{}`), rec)
		require.NoError(t, env.handler.Hangup(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsafe channel", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/hangup", `{"channel":"PJSIP/a\r\nAction: Command"}`), rec)
		require.NoError(t, env.handler.Hangup(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/hangup", `{"channel":"PJSIP/twilio-endpoint-00000001"}`), rec)
		require.NoError(t, env.handler.Hangup(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp domain.HangupResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Success", resp.Output)
	})

	assert.Len(t, env.runner.Commands(), 1)
}

func TestHealthAndIndex(t *testing.T) {
	env := newTestHandler(t)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, env.handler.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")

	rec = httptest.NewRecorder()
	require.NoError(t, env.handler.Index(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutesRegistered(t *testing.T) {
	env := newTestHandler(t)
	e := echo.New()
	env.handler.RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/conversation/call_doesnotexist", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NotFound")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
