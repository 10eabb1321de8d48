package connect

import (
	"context"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the admin service.
type Client struct {
	listSessions *connect.Client[emptypb.Empty, structpb.Struct]
	stopGuild    *connect.Client[wrapperspb.StringValue, wrapperspb.StringValue]
	leaveGuild   *connect.Client[wrapperspb.StringValue, emptypb.Empty]
}

// NewClient creates an admin client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, token string, opts ...connect.ClientOption) *Client {
	opts = append(opts, connect.WithInterceptors(NewTokenInterceptor(token)))
	return &Client{
		listSessions: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+ListSessionsProcedure, opts...),
		stopGuild:    connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](httpClient, baseURL+StopGuildProcedure, opts...),
		leaveGuild:   connect.NewClient[wrapperspb.StringValue, emptypb.Empty](httpClient, baseURL+LeaveGuildProcedure, opts...),
	}
}

// ListSessions returns the session list document.
func (c *Client) ListSessions(ctx context.Context) (*structpb.Struct, error) {
	resp, err := c.listSessions.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// StopGuild stops playback in a guild and returns the server message.
func (c *Client) StopGuild(ctx context.Context, guildID string) (string, error) {
	resp, err := c.stopGuild.CallUnary(ctx, connect.NewRequest(wrapperspb.String(guildID)))
	if err != nil {
		return "", err
	}
	return resp.Msg.GetValue(), nil
}

// LeaveGuild makes the bot leave voice in a guild.
func (c *Client) LeaveGuild(ctx context.Context, guildID string) error {
	_, err := c.leaveGuild.CallUnary(ctx, connect.NewRequest(wrapperspb.String(guildID)))
	return err
}
