package cloud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

type fakeCognito struct {
	t       *testing.T
	expires []time.Time // per call
	flows   []types.AuthFlowType
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput,
	_ ...func(*cognitoidentityprovider.Options),
) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	n := len(f.flows)
	f.flows = append(f.flows, in.AuthFlow)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": f.expires[n].Unix(),
		"n":   n,
	}).SignedString([]byte("test"))
	if err != nil {
		f.t.Fatal(err)
	}

	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:      aws.String(token),
			RefreshToken: aws.String("opaque"),
		},
	}, nil
}

func mqttServer(t *testing.T, tokens *[]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/prod/mqtt-connections" {
			t.Errorf("request %s %s", r.Method, r.URL.Path)
		}

		*tokens = append(*tokens, r.Header.Get("authorization"))

		_, _ = w.Write([]byte(`{"expirationSeconds":3600,"expiresAt":1736532000,"signedUrl":"wss://broker.example.com/mqtt?X-Amz-Signature=abc"}`))
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestMQTT(t *testing.T) {
	var tokens []string

	srv := mqttServer(t, &tokens)
	cognito := &fakeCognito{t: t, expires: []time.Time{time.Now().Add(time.Hour)}}

	c, err := NewClient(context.Background(), URL(srv.URL), Credentials("u", "p"), WithAuthenticator(cognito))
	if err != nil {
		t.Fatal(err)
	}

	opts, err := c.MQTT(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker.example.com" {
		t.Errorf("servers = %v", opts.Servers)
	}

	if len(cognito.flows) != 1 || cognito.flows[0] != types.AuthFlowTypeUserPasswordAuth {
		t.Errorf("auth flows = %v", cognito.flows)
	}

	if len(tokens) != 1 || tokens[0] == "" {
		t.Errorf("authorization headers = %v", tokens)
	}
}

func TestMQTTRefreshesExpiringToken(t *testing.T) {
	var tokens []string

	srv := mqttServer(t, &tokens)
	cognito := &fakeCognito{t: t, expires: []time.Time{
		time.Now().Add(30 * time.Second),
		time.Now().Add(time.Hour),
	}}

	c, err := NewClient(context.Background(), URL(srv.URL), WithAuthenticator(cognito))
	if err != nil {
		t.Fatal(err)
	}

	first := c.idToken

	if _, err := c.MQTT(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(cognito.flows) != 2 || cognito.flows[1] != types.AuthFlowTypeRefreshTokenAuth {
		t.Fatalf("auth flows = %v", cognito.flows)
	}

	if tokens[0] == first {
		t.Error("request used the expiring token")
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(context.Background(), WithAuthenticator(&fakeCognito{t: t})); err == nil {
		t.Error("NewClient() without a URL succeeded")
	}
}
