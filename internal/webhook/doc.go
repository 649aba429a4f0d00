// Package webhook receives Twilio webhooks and answers them with TwiML.
//
// Every delivery carries X-Twilio-Signature, a base64 HMAC-SHA1 keyed with the
// account auth token over a canonical string:
//
//	https://<Host><request-target>[<key><value>...]
//
// The key/value suffix is only present for POST and follows the order in which
// fields appear in the form body. Signatures are compared in constant time.
//
// # Request Flow
//
//  1. Body read up to max_body_size (413 if larger)
//  2. Signature header, Host and request target checked
//  3. Fields decoded from the query (GET) or body (POST)
//  4. Signature verified
//  5. Fields converted into a twilio.Message or twilio.Call
//  6. Delivery recorded in the inbox
//  7. Reply template rendered as TwiML, 200 returned
//
// Any failure in steps 2-5 yields 400 with the fixed body "Bad Request"; the
// reason is only logged.
//
// # Example Usage
//
//	auth := webhook.NewAuthenticator(os.Getenv("TWILIO_AUTH_TOKEN"))
//	resp, err := webhook.Respond(auth, req, func(m *twilio.Message) twiml.Document {
//		return twiml.NewResponse().Add(twiml.Message{Body: "got " + m.Body})
//	})
//
// Server wires the same pipeline behind a chi router:
//
//	srv, err := webhook.New(cfg, auth, inbox, logger)
//	if err != nil {
//		return err
//	}
//	return srv.Start(ctx)
package webhook
