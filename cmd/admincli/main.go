// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/jukebot/internal/api/connect"
)

var (
	app     = kingpin.New("jukebot-admincli", "jukebot admin client")
	server  = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token   = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()
	timeout = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	// sessions command
	sessionsCmd = app.Command("sessions", "List guild sessions").Alias("list")

	// stop command
	stopCmd   = app.Command("stop", "Clear the queue and stop playback in a guild")
	stopGuild = stopCmd.Arg("guild-id", "Guild ID").Required().String()

	// leave command
	leaveCmd   = app.Command("leave", "Disconnect the bot from voice in a guild")
	leaveGuild = leaveCmd.Arg("guild-id", "Guild ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch command {
	case sessionsCmd.FullCommand():
		err = listSessions(ctx, client)
	case stopCmd.FullCommand():
		var msg string
		msg, err = client.StopGuild(ctx, *stopGuild)
		if err == nil {
			fmt.Println(msg)
		}
	case leaveCmd.FullCommand():
		err = client.LeaveGuild(ctx, *leaveGuild)
		if err == nil {
			fmt.Println("Left voice channel")
		}
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func listSessions(ctx context.Context, client *apiconnect.Client) error {
	resp, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}

	sessions := resp.Fields["sessions"].GetListValue().GetValues()
	fmt.Printf("Sessions (%d):\n", len(sessions))
	for _, v := range sessions {
		s := v.GetStructValue().GetFields()
		fmt.Printf("  %s: %s (queue: %d", s["guild_id"].GetStringValue(), s["state"].GetStringValue(),
			int(s["queue_size"].GetNumberValue()))
		if ch, ok := s["channel_id"]; ok {
			fmt.Printf(", channel: %s", ch.GetStringValue())
		}
		if s["idle_armed"].GetBoolValue() {
			deadline, err := time.Parse(time.RFC3339, s["idle_deadline"].GetStringValue())
			if err == nil {
				fmt.Printf(", leaving in %s", time.Until(deadline).Round(time.Second))
			}
		}
		fmt.Println(")")
	}
	return nil
}
