package e2e

import (
	"chat-hub/client"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseHubSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration and skips when no hub is configured.
func (s *BaseHubSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HTTPAddr == "" {
		s.T().Skip("HUB_HTTP_ADDR not set, no running hub to test against")
	}
}

func (s *BaseHubSuite) header(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseHubSuite) GrpcConn(t *testing.T, name string) *grpc.ClientConn {
	s.header(t, name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(s.Config.GrpcAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err == nil {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+s.Config.GrpcAddr)
	return conn
}

// WithHealth provides a health client within a contextual test step
func (s *BaseHubSuite) WithHealth(name string, fn func(ctx context.Context, health grpc_health_v1.HealthClient)) {
	conn := s.GrpcConn(s.T(), name)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fn(ctx, grpc_health_v1.NewHealthClient(conn))
}

// WithParticipant dials the WebSocket endpoint, runs the read loop and closes on return.
func (s *BaseHubSuite) WithParticipant(name string, handler client.Handler, fn func(ctx context.Context, c *client.Client)) {
	s.header(s.T(), name)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("ws://%s/chat/ws", s.Config.HTTPAddr)
	c, err := client.Dial(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), url, 0)
	s.Require().NoError(err)
	defer c.Close()

	go func() { _ = c.Run(ctx, handler) }()
	fn(ctx, c)
}
