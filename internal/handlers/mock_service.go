package handlers

import (
	"context"
	"net/http"
	"time"

	"garage_door"
	"garage_door/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseEmail    string
	parseErr      error
	pushKeyOK     bool
	allowed       bool

	lastSignUpEmail    string
	lastSignUpPassword string
	lastGenEmail       string
	lastGenPassword    string
	lastParseToken     string
	lastVerifiedKey    string
}

func (m *mockAuth) SignUp(email, password string) (int, error) {
	m.lastSignUpEmail = email
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(email, password string) (string, error) {
	m.lastGenEmail = email
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParseToken = token
	return m.parseEmail, m.parseErr
}
func (m *mockAuth) VerifyPushKey(key string) bool {
	m.lastVerifiedKey = key
	return m.pushKeyOK
}
func (m *mockAuth) IsAllowed(email string) bool { return m.allowed }

type mockCheckIn struct {
	rec      garage_door.EventRecord
	err      error
	sweepErr error

	processCalls int
	sweepCalls   int
	lastBuild    string
	lastSnapshot garage_door.SensorSnapshot
}

func (m *mockCheckIn) Process(ctx context.Context, buildTimestamp string, snap garage_door.SensorSnapshot) (garage_door.EventRecord, error) {
	m.processCalls++
	m.lastBuild = buildTimestamp
	m.lastSnapshot = snap
	return m.rec, m.err
}
func (m *mockCheckIn) Sweep(ctx context.Context) error {
	m.sweepCalls++
	return m.sweepErr
}

type mockRemote struct {
	pushCmd garage_door.RemoteCommand
	pushErr error
	pollCmd garage_door.RemoteCommand
	pollErr error

	pushCalls int
	pollCalls int
	lastPush  service.PushParams
	lastPoll  service.PollParams
}

func (m *mockRemote) RequestPush(ctx context.Context, p service.PushParams) (garage_door.RemoteCommand, error) {
	m.pushCalls++
	m.lastPush = p
	return m.pushCmd, m.pushErr
}
func (m *mockRemote) DevicePoll(ctx context.Context, p service.PollParams) (garage_door.RemoteCommand, error) {
	m.pollCalls++
	m.lastPoll = p
	return m.pollCmd, m.pollErr
}

type mockSnooze struct {
	snooze    garage_door.SnoozeRequest
	submitErr error
	status    service.SnoozeStatusResult
	statusErr error

	lastSubmit service.SnoozeSubmitParams
}

func (m *mockSnooze) Submit(ctx context.Context, p service.SnoozeSubmitParams) (garage_door.SnoozeRequest, error) {
	m.lastSubmit = p
	return m.snooze, m.submitErr
}
func (m *mockSnooze) Status(ctx context.Context, buildTimestamp string) (service.SnoozeStatusResult, error) {
	return m.status, m.statusErr
}

type mockEvents struct {
	current *garage_door.EventRecord
	history []garage_door.EventRecord
	err     error

	lastBuild    string
	lastMaxCount int
}

func (m *mockEvents) Current(ctx context.Context, buildTimestamp string) (*garage_door.EventRecord, error) {
	m.lastBuild = buildTimestamp
	return m.current, m.err
}
func (m *mockEvents) History(ctx context.Context, buildTimestamp string, maxCount int) ([]garage_door.EventRecord, error) {
	m.lastBuild = buildTimestamp
	m.lastMaxCount = maxCount
	return m.history, m.err
}

type mockReminders struct {
	err   error
	calls int
}

func (m *mockReminders) CheckOpenDoors(ctx context.Context) error {
	m.calls++
	return m.err
}

type mockMaintenance struct {
	res service.PurgeResult
	err error

	lastOlderThan time.Duration
	lastDryRun    bool
}

func (m *mockMaintenance) PurgeHistory(ctx context.Context, olderThan time.Duration, dryRun bool) (service.PurgeResult, error) {
	m.lastOlderThan = olderThan
	m.lastDryRun = dryRun
	return m.res, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, NewEventHub(), FeatureFlags{RemoteButtonEnabled: true, SnoozeEnabled: true}, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
