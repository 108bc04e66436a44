package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
)

// StateTopic carries every change of the signed-in user.
const StateTopic = "auth.state"

type statePayload struct {
	User *domain.User `json:"user"`
}

// Client holds the one signed-in user of a process and broadcasts changes to it.
type Client struct {
	provider Authenticator
	pubsub   *gochannel.GoChannel

	publishMu sync.Mutex

	mu          sync.Mutex
	initialized bool
	token       string
	user        *domain.User
}

func NewClient(provider Authenticator, logger watermill.LoggerAdapter) *Client {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Client{
		provider: provider,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            16,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// Init restores a previously issued token, or settles on no user when the
// token is empty or no longer valid. Subscribers hear nothing before Init.
func (c *Client) Init(ctx context.Context, token string) error {
	var user *domain.User
	if token != "" {
		u, err := c.provider.Resolve(ctx, token)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, ErrSessionNotFound):
			token = ""
		default:
			return err
		}
	}
	return c.set(token, user)
}

// SignUp registers the account and signs it in.
func (c *Client) SignUp(ctx context.Context, input SignUpInput) (*domain.User, error) {
	if _, err := c.provider.SignUp(ctx, input); err != nil {
		return nil, err
	}
	return c.SignIn(ctx, input.Email, input.Password)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	user, token, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.set(token, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SignOut ends the session. The local state is cleared even if the remote
// delete fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	remoteErr := c.provider.SignOut(ctx, token)
	if err := c.set("", nil); err != nil {
		return err
	}
	return remoteErr
}

func (c *Client) CurrentUser() *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) Profile(ctx context.Context) (*domain.Profile, error) {
	user := c.CurrentUser()
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return c.provider.Profile(ctx, user.UID)
}

// OnAuthStateChange streams the signed-in user, nil meaning signed out. Once
// the client is initialized the current state is delivered first. The channel
// closes when ctx is done.
func (c *Client) OnAuthStateChange(ctx context.Context) (<-chan *domain.User, error) {
	messages, err := c.pubsub.Subscribe(ctx, StateTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", StateTopic, err)
	}

	c.mu.Lock()
	initialized := c.initialized
	var current *domain.User
	if c.user != nil {
		u := *c.user
		current = &u
	}
	c.mu.Unlock()

	out := make(chan *domain.User, 4)
	go func() {
		defer close(out)
		if initialized {
			select {
			case out <- current:
			case <-ctx.Done():
				return
			}
		}
		for msg := range messages {
			var payload statePayload
			err := json.Unmarshal(msg.Payload, &payload)
			msg.Ack()
			if err != nil {
				continue
			}
			select {
			case out <- payload.User:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) Close() error {
	return c.pubsub.Close()
}

func (c *Client) set(token string, user *domain.User) error {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	c.initialized = true
	c.token = token
	c.user = user
	c.mu.Unlock()

	payload, err := json.Marshal(statePayload{User: user})
	if err != nil {
		return err
	}
	return c.pubsub.Publish(StateTopic, message.NewMessage(watermill.NewUUID(), payload))
}
