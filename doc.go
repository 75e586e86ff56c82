// Package onesub is the Go client for the 1Sub platform: subscription
// verification, credit consumption, account linking, and verified webhook
// dispatch for tools that monetize through 1Sub.
//
// Construction requires a tool API key:
//
//	client, err := onesub.New("sk-tool-xxx",
//		onesub.WithWebhookSecret("whsec_xxx"),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	sub, err := client.Subscriptions().VerifyByEmail(ctx, "user@example.com")
//	if err != nil {
//		return err
//	}
//	if sub.Active {
//		result, err := client.Credits().Consume(ctx, onesub.ConsumeRequest{
//			UserID:         sub.OneSubUserID,
//			Amount:         10,
//			Reason:         "image generation",
//			IdempotencyKey: onesub.NewIdempotencyKey("img", sub.OneSubUserID),
//		})
//		_ = result
//		_ = err
//	}
//
// Webhook deliveries are verified and routed through the dispatcher:
//
//	client.Webhooks().On("subscription.updated", func(ctx context.Context, event onesub.Event) error {
//		// react to the change
//		return nil
//	})
//
// Failures surface as go-errors envelopes with stable text codes; richer
// errors such as RateLimitError and InsufficientCreditsError are reachable
// through errors.As.
package onesub
