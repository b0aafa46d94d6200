// Package batchsync provides an embeddable Go client for applying one field
// change to many CRM contacts with retries, bounded concurrency and
// per-contact failure accounting.
//
//	client, _ := batchsync.New(ctx, batchsync.WithHubSpot(os.Getenv("HUBSPOT_TOKEN")))
//	res, err := client.Run(ctx, ids, batchsync.FieldWhatsAppConsent, "granted")
//	if err != nil {
//	    // only malformed input ends up here
//	}
//	for _, f := range res.Failed {
//	    log.Printf("%s: %s (%s)", f.ID, f.Message, f.Kind)
//	}
//	retry, _ := client.Retry(ctx, res)
//
// Any system can be targeted by passing an ExternalClient with WithClient.
// With WithRedis, every run is recorded and can be listed and retried by ID.
package batchsync
