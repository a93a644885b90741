/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dartci/pubrel/internal/toolexec"
)

// IdentityToken prints an identity token for the active account and checks that it was
// issued for the configured audience and has not expired.
func (c *Client) IdentityToken(ctx context.Context) (string, error) {
	cmd := toolexec.Command{
		Name: c.Gcloud,
		Args: []string{"auth", "print-identity-token", "--audiences=" + c.Audience},
	}
	out, err := c.Runner.Output(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to print identity token: %w", err)
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", errors.New("gcloud returned an empty identity token")
	}

	claims, err := inspectIdentityToken(token, c.Audience, time.Now())
	if err != nil {
		return "", err
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	c.Log.V(1).Info("obtained identity token", "subject", claims.Subject, "expires", expires)
	return token, nil
}

// inspectIdentityToken decodes the token claims without verifying the signature; the
// registry verifies it. This only catches tokens minted for the wrong audience or already
// expired before handing them to dart.
func inspectIdentityToken(token, audience string, now time.Time) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("identity token is not a valid JWT: %w", err)
	}
	if audience != "" && !slices.Contains(claims.Audience, audience) {
		return nil, fmt.Errorf("identity token audience %v does not include %q", []string(claims.Audience), audience)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("identity token expired at %s", claims.ExpiresAt.Format(time.RFC3339))
	}
	return claims, nil
}
