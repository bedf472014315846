// Package grpc exposes the credential-protection core over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophguard/internal/breach"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/services"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// UserService is the authentication API the transport calls.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.Identity, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	VerifyAccess(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// VaultService is the vault API the transport calls.
type VaultService interface {
	Create(ctx context.Context, userID, site, username, secret string) (*models.VaultEntry, strength.Report, error)
	Get(ctx context.Context, userID, id string) (*models.VaultEntry, []byte, error)
	List(ctx context.Context, userID string) ([]*models.VaultEntry, error)
	Update(ctx context.Context, userID, id, site, username, secret string) (*models.VaultEntry, strength.Report, error)
	Delete(ctx context.Context, userID, id string) error
	Export(ctx context.Context, userID string) (*services.ExportResult, error)
	Exports(ctx context.Context, userID string) ([]*models.Export, error)
}

// SecurityService is the breach-check API the transport calls.
type SecurityService interface {
	CheckPassword(ctx context.Context, password string) (services.PasswordCheck, error)
	CheckEmail(ctx context.Context, email string) (breach.EmailReport, error)
}

type GRPCServer struct {
	address  string
	users    UserService
	vault    VaultService
	security SecurityService
	logger   logging.Logger
	health   *health.Server
}

func NewGRPCServer(a string, l logging.Logger, us UserService, vs VaultService, ss SecurityService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		users:    us,
		vault:    vs,
		security: ss,
		health:   health.NewServer(),
	}
}

// newServer builds the grpc.Server with interceptors, tracing and health.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(s.requestLogInterceptor, s.accessTokenInterceptor),
	)

	srv.RegisterService(&GuardServiceDesc, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
