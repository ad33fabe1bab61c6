// Package civicpush is the eligibility and notification targeting engine of a
// municipal information app. It decides which inbox notices a visitor or a
// local resident sees, which emergency banners appear on which screen, and
// which registered devices receive an urgent push in which language.
//
// Works both as a library embedded in a backend AND as a standalone service
// with a REST API (cmd/civicpush-server).
//
// # Features
//
//   - Tag taxonomy with deprecated alias folding (cestovni_promet, pomorski_promet → promet)
//   - Municipal targeting: Vis and Komiža notices reach only their locals
//   - Emergency banners: at most 3 per screen, newest window first
//   - Push trigger on window activation, dispatched once per activation
//   - Locale matching without fallback: EN devices get EN content or nothing
//   - Device token store with opt-in preserved across token refresh
//   - Tokens masked in every log line and API response
//   - Pluggable DeliveryProvider, Logger and NotificationService
//   - Memory, SQL (Relica: MySQL, PostgreSQL, SQLite) and Redis stores
//   - Embedded migrations
//
// # Quick Start
//
// Apply the schema and create the repositories:
//
//	db, _ := sql.Open("sqlite3", "civicpush.db")
//	if err := civicpush.ApplyMigrations(ctx, db, "sqlite3"); err != nil {
//	    log.Fatal(err)
//	}
//	repos := relica.NewRepositories(db, "sqlite3")
//
// Wire the services with the Options Pattern:
//
//	dispatcher, _ := civicpush.NewDispatcher(
//	    civicpush.WithDeliveryProvider(provider),
//	    civicpush.WithDispatcherDevices(repos.Device),
//	    civicpush.WithDispatcherLogger(logger),
//	)
//
//	worker, _ := civicpush.NewActivationWorker(
//	    civicpush.WithWorkerRepositories(repos.Message, repos.Activation),
//	    civicpush.WithWorkerDispatcher(dispatcher),
//	    civicpush.WithWorkerLogger(logger),
//	)
//	go worker.Run(ctx, 15*time.Second)
//
// Read the inbox of a Komiža local:
//
//	inbox, _ := civicpush.NewInbox(
//	    civicpush.WithInboxMessages(repos.Message),
//	    civicpush.WithInboxLogger(logger),
//	)
//	msgs, err := inbox.Messages(ctx, model.NewLocal(model.MunicipalityKomiza))
//
// # Targeting Flow
//
//  1. READ
//     Inbox.Messages → targeting.EligibleMessages (visibility, municipal gate)
//     Inbox.Banners  → targeting.SelectBanners (tag pair, window, screen, rank, cap)
//
//  2. ACTIVATION (Background)
//     ActivationWorker → targeting.ShouldTriggerPushFor
//     → Record PushActivation (message ID, window start)
//     → Dispatcher.DispatchMessage
//
//  3. DISPATCH
//     DeviceRepository.ListEligible (opt-in, municipal gate, locale)
//     → targeting.MatchLocale → DeliveryProvider.SendBatch (one call)
//     → On unreachable provider: retry with exponential backoff
//     → After 5 failures: abandon
//
// The pure rules live in package targeting and the domain types in package
// model; both have no dependencies on storage or transport.
package civicpush
