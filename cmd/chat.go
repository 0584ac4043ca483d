package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/realtime"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// Chat joins a room and relays stdin lines until EOF, ctx cancellation or the server closing the room.
//
// In music rooms each line is "<type> <message>", e.g. "play 4uLU6hMCjMI75M1A2tKUQC".
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	return r.chat(ctx, cmd, os.Stdin)
}

func (r *Runner) chat(ctx context.Context, cmd *cli.Command, input io.Reader) error {
	name, err := stringArg(cmd, "room")
	if err != nil {
		return err
	}
	client, err := r.apiClient(ctx)
	if err != nil {
		return err
	}

	kind := realtime.Chat
	if cmd.Bool("music") {
		kind = realtime.Music
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	room, err := realtime.Dial(ctx, kind, name, realtime.Options{
		BaseURL:    r.config.API.BaseURL,
		Token:      client.Pipeline().Vault().AccessToken,
		HTTPClient: r.httpClient,
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}
	defer room.Close()

	r.writePlain("Joined %s room %q. Ctrl+D to leave.\n", kind, name)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-room.Messages():
			if !ok {
				return room.Err()
			}
			r.printRoomMessage(kind, msg)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.sendLine(ctx, room, kind, line); err != nil {
				if errors.Is(err, shared.ErrInvalidInput) {
					r.writePlain("%v\n", err)
					continue
				}
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) sendLine(ctx context.Context, room *realtime.Room, kind realtime.Kind, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if kind == realtime.Chat {
		return room.Send(ctx, line)
	}

	typ, text, ok := strings.Cut(line, " ")
	if !ok || text == "" {
		return fmt.Errorf("%w: music messages are \"<type> <message>\"", shared.ErrInvalidInput)
	}
	return room.Broadcast(ctx, typ, text)
}

func (r *Runner) printRoomMessage(kind realtime.Kind, msg realtime.Message) {
	if kind == realtime.Music {
		r.writePlain("[%s] %s\n", msg.Type, msg.Message)
		return
	}
	who := msg.Username
	if who == "" {
		who = "anonymous"
	}
	r.writePlain("%s: %s\n", who, msg.Message)
}
