package rpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
)

// Client calls CredentialService over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Register(ctx context.Context, email, password string) (*Session, error) {
	out := new(Session)
	err := c.invoke(ctx, MethodRegister, &Credentials{Email: email, Password: password}, out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	out := new(Session)
	err := c.invoke(ctx, MethodLogin, &Credentials{Email: email, Password: password}, out)
	return out, err
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	out := new(Session)
	err := c.invoke(ctx, MethodRefreshToken, &RefreshRequest{RefreshToken: refreshToken}, out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.invoke(ctx, MethodLogout, &RefreshRequest{RefreshToken: refreshToken}, new(emptypb.Empty))
}

func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*Identity, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, accessToken)
	out := new(Identity)
	err := c.invoke(ctx, MethodWhoAmI, new(emptypb.Empty), out)
	return out, err
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, method, in, out, grpc.CallContentSubtype(CodecName))
}
