package connect

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/jukebot/internal/app/session"
)

const (
	// AdminServiceName is the fully-qualified name of the admin service.
	AdminServiceName = "jukebot.admin.v1.AdminService"

	ListSessionsProcedure = "/" + AdminServiceName + "/ListSessions"
	StopGuildProcedure    = "/" + AdminServiceName + "/StopGuild"
	LeaveGuildProcedure   = "/" + AdminServiceName + "/LeaveGuild"
)

// Sessions is the part of the session manager exposed to administrators.
type Sessions interface {
	Sessions() []session.SessionStatus
	Stop(ctx context.Context, guildID snowflake.ID) (*session.StopResult, error)
	Leave(ctx context.Context, guildID snowflake.ID) error
}

// AdminService implements the admin RPCs on protobuf well-known types.
type AdminService struct {
	sessions Sessions
}

// NewAdminService creates a new AdminService.
func NewAdminService(sessions Sessions) *AdminService {
	return &AdminService{
		sessions: sessions,
	}
}

// Register mounts the service procedures on mux.
func (s *AdminService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(ListSessionsProcedure, connect.NewUnaryHandler(ListSessionsProcedure, s.ListSessions, opts...))
	mux.Handle(StopGuildProcedure, connect.NewUnaryHandler(StopGuildProcedure, s.StopGuild, opts...))
	mux.Handle(LeaveGuildProcedure, connect.NewUnaryHandler(LeaveGuildProcedure, s.LeaveGuild, opts...))
}

// ListSessions returns the status of every known guild session.
func (s *AdminService) ListSessions(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	statuses := s.sessions.Sessions()

	list := make([]any, 0, len(statuses))
	for _, st := range statuses {
		entry := map[string]any{
			"guild_id":   st.GuildID.String(),
			"state":      st.State.String(),
			"queue_size": st.QueueSize,
			"idle_armed": st.IdleArmed,
		}
		if st.IdleArmed {
			entry["idle_deadline"] = st.IdleDeadline.Format(time.RFC3339)
		}
		if st.ChannelID != nil {
			entry["channel_id"] = st.ChannelID.String()
		}
		list = append(list, entry)
	}

	resp, err := structpb.NewStruct(map[string]any{"sessions": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode sessions"))
	}
	return connect.NewResponse(resp), nil
}

// StopGuild clears the queue and stops playback in a guild.
func (s *AdminService) StopGuild(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	guildID, err := parseGuildID(req.Msg)
	if err != nil {
		return nil, err
	}

	result, err := s.sessions.Stop(ctx, guildID)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("admin stopped guild: guild_id=%s cleared=%d", guildID, result.Cleared)

	return connect.NewResponse(wrapperspb.String(fmt.Sprintf(
		"Stopped, %d tracks cleared; leaving in %v", result.Cleared, result.IdleTimeout))), nil
}

// LeaveGuild disconnects the bot from voice in a guild.
func (s *AdminService) LeaveGuild(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[emptypb.Empty], error) {
	guildID, err := parseGuildID(req.Msg)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Leave(ctx, guildID); err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("admin left guild: guild_id=%s", guildID)

	return connect.NewResponse(&emptypb.Empty{}), nil
}

func parseGuildID(msg *wrapperspb.StringValue) (snowflake.ID, error) {
	id, err := snowflake.Parse(msg.GetValue())
	if err != nil || id == 0 {
		return 0, connect.NewError(connect.CodeInvalidArgument, errors.Newf("invalid guild id %q", msg.GetValue()))
	}
	return id, nil
}

// toConnectError maps session errors to RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrNothingPlaying):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrCollaboratorUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
