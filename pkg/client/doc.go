// Package client is the Go SDK for the auction ledger HTTP API.
//
// Reads need no identity. Transactions (issue, auction, buy, deliver) must
// carry the caller's identity, either as a Bearer client token issued by the
// server operator or, against a development server, as plain identity headers:
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithBearerToken(os.Getenv("AUCTION_TOKEN")),
//	)
//	cm, err := c.Issue(ctx, client.IssueRequest{
//	    Issuer:     "IssuerMSP1",
//	    ItemNumber: "00001",
//	    FaceValue:  500000,
//	})
//
// Non-2xx responses are returned as *APIError.
package client
