package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

var listMethod = &grpc.UnaryServerInfo{FullMethod: rpc.FullMethod(rpc.MethodListRegistrations)}

// authCases drive both transports: header is the Authorization value
// presented ("" sends none), want is the checkBearer message expected in the
// rejection ("" means the call goes through).
var authCases = []struct {
	name   string
	token  string
	header string
	want   string
}{
	{"auth disabled", "", "", ""},
	{"auth disabled ignores junk", "", "Basic whatever", ""},
	{"accepted", "secret", "Bearer secret", ""},
	{"no header", "secret", "", "missing authorization header"},
	{"wrong token", "secret", "Bearer wrong", "invalid token"},
	{"token prefix only", "secret", "Bearer secre", "invalid token"},
	{"basic scheme", "secret", "Basic secret", "invalid authorization scheme"},
	{"lowercase scheme", "secret", "bearer secret", "invalid authorization scheme"},
}

func TestAuth_BothTransportsAgree(t *testing.T) {
	for _, tc := range authCases {
		t.Run(tc.name, func(t *testing.T) {
			// gRPC
			ctx := context.Background()
			if tc.header != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs("authorization", tc.header))
			} else {
				ctx = metadata.NewIncomingContext(ctx, metadata.MD{})
			}
			called := false
			_, err := AuthInterceptor(tc.token)(ctx, nil, listMethod, func(context.Context, any) (any, error) {
				called = true
				return nil, nil
			})
			if tc.want == "" {
				if err != nil || !called {
					t.Fatalf("grpc: err = %v, called = %v; want pass-through", err, called)
				}
			} else {
				st, _ := status.FromError(err)
				if st.Code() != codes.Unauthenticated || st.Message() != tc.want || called {
					t.Fatalf("grpc: status = %v %q, called = %v; want Unauthenticated %q", st.Code(), st.Message(), called, tc.want)
				}
			}

			// HTTP
			h := AuthMiddleware(tc.token, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}))
			req := httptest.NewRequest(http.MethodGet, "/v1/registrations", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if tc.want == "" {
				if rec.Code != http.StatusNoContent {
					t.Fatalf("http: status = %d; want pass-through", rec.Code)
				}
				return
			}
			var body map[string]string
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if rec.Code != http.StatusUnauthorized || body["error"] != tc.want {
				t.Fatalf("http: %d %v; want 401 %q", rec.Code, body, tc.want)
			}
		})
	}
}

func TestAuth_GRPCMissingMetadata(t *testing.T) {
	_, err := AuthInterceptor("secret")(context.Background(), nil, listMethod, func(context.Context, any) (any, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want Unauthenticated", status.Code(err))
	}
}

// Health probes carry no credentials on either transport.
func TestAuth_HealthExempt(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}
	if _, err := AuthInterceptor("secret")(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("grpc health check rejected: %v", err)
	}

	h := AuthMiddleware("secret", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, tc := range []struct {
		method string
		want   int
	}{
		{http.MethodGet, http.StatusOK},
		// Only reads of the health endpoint are exempt.
		{http.MethodPost, http.StatusUnauthorized},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, "/v1/health", nil))
		if rec.Code != tc.want {
			t.Errorf("%s /v1/health = %d, want %d", tc.method, rec.Code, tc.want)
		}
	}
}

// captureLogs routes slog.Default to a JSON buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decoding log line %q: %v", lines[len(lines)-1], err)
	}
	buf.Reset()
	return rec
}

func TestLoggingInterceptor_Levels(t *testing.T) {
	buf := captureLogs(t)
	ok := func(context.Context, any) (any, error) { return nil, nil }

	if _, err := LoggingInterceptor(context.Background(), nil, listMethod, ok); err != nil {
		t.Fatal(err)
	}
	if rec := lastRecord(t, buf); rec["level"] != "INFO" || rec["method"] != listMethod.FullMethod {
		t.Errorf("success record = %v", rec)
	}

	health := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}
	if _, err := LoggingInterceptor(context.Background(), nil, health, ok); err != nil {
		t.Fatal(err)
	}
	if rec := lastRecord(t, buf); rec["level"] != "DEBUG" {
		t.Errorf("health record level = %v, want DEBUG", rec["level"])
	}

	failed := func(context.Context, any) (any, error) {
		return nil, status.Error(codes.NotFound, "registration not found: x")
	}
	if _, err := LoggingInterceptor(context.Background(), nil, listMethod, failed); status.Code(err) != codes.NotFound {
		t.Fatalf("error not passed through: %v", err)
	}
	rec := lastRecord(t, buf)
	if rec["level"] != "ERROR" || rec["code"] != "NotFound" {
		t.Errorf("failure record = %v, want ERROR with code NotFound", rec)
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	captureLogs(t)
	_, err := RecoveryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Panics"},
		func(context.Context, any) (any, error) { panic("boom") })
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
