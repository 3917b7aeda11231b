package grpc_control

import (
	"context"
	"fmt"
	"time"

	"market-stream/src/config"
	"market-stream/src/interfaces"
	"market-stream/src/logger"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const closedByOperator = "Closed by operator"

// ControlService implements the StreamControlServer interface
type ControlService struct {
	Config      *config.Config
	Sessions    interfaces.ISessionManager
	Logger      *logger.Logger
	Connections func() int
	startedAt   time.Time
}

var _ StreamControlServer = (*ControlService)(nil)

// NewControlService creates a new instance of ControlService. connections may be nil.
func NewControlService(
	cfg *config.Config,
	sessions interfaces.ISessionManager,
	connections func() int,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:      cfg,
		Sessions:    sessions,
		Logger:      log,
		Connections: connections,
		startedAt:   time.Now(),
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSessions(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	sessions := s.Sessions.Sessions()
	list := make([]interface{}, 0, len(sessions))
	for _, info := range sessions {
		list = append(list, map[string]interface{}{
			"connId":       info.ConnID,
			"stockCode":    info.StockCode,
			"tradingDate":  info.TradingDate,
			"phase":        string(info.Phase),
			"lastTickTime": info.LastTickTime,
			"startedAt":    float64(info.StartedAt),
		})
	}

	out, err := structpb.NewStruct(map[string]interface{}{"sessions": list})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode sessions: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) CloseSession(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	connID := req.GetValue()
	if connID == "" {
		return nil, status.Error(codes.InvalidArgument, "connection id is required")
	}

	if !s.Sessions.CloseSession(connID, closedByOperator) {
		return nil, status.Errorf(codes.NotFound, "session %s not found", connID)
	}

	s.Logger.Info("gRPC: closed session %s", connID)
	return wrapperspb.Bool(true), nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"name":           s.Config.Name,
		"activeSessions": float64(len(s.Sessions.Sessions())),
		"uptimeSeconds":  float64(int64(time.Since(s.startedAt).Seconds())),
		"exchangeTime":   time.Now().In(s.Config.Location()).Format(time.RFC3339),
		"storage":        s.Config.Storage.DBType,
		"ingest":         s.Config.Kafka.Enabled,
		"latestCache":    s.Config.Redis.Enabled,
	}
	if s.Connections != nil {
		fields["connections"] = float64(s.Connections())
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode status: %v", err))
	}
	return out, nil
}
