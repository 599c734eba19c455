package staking

// Subscriber handles event subscriptions.
type Subscriber struct {
	done                    chan struct{}
	reconciledHandler       func(Reconciled)
	discardedHandler        func(ReconcileDiscarded)
	reconcileFailedHandler  func(ReconcileFailed)
	candidateMissingHandler func(CandidateMissing)
	recordFailedHandler     func(RecordFailed)
	submittedHandler        func(SubmissionSucceeded)
	submitFailedHandler     func(SubmissionFailed)
	unbondingHandler        func(UnbondingCompleted)
	pollStartedHandler      func(PollingStarted)
	pollShutdownHandler     func(PollingShutdown)
}

// OnReconciled sets the handler for Reconciled events
func OnReconciled(fn func(Reconciled)) func(*Subscriber) {
	return func(s *Subscriber) { s.reconciledHandler = fn }
}

// OnReconcileDiscarded sets the handler for ReconcileDiscarded events
func OnReconcileDiscarded(fn func(ReconcileDiscarded)) func(*Subscriber) {
	return func(s *Subscriber) { s.discardedHandler = fn }
}

// OnReconcileFailed sets the handler for ReconcileFailed events
func OnReconcileFailed(fn func(ReconcileFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.reconcileFailedHandler = fn }
}

// OnCandidateMissing sets the handler for CandidateMissing events
func OnCandidateMissing(fn func(CandidateMissing)) func(*Subscriber) {
	return func(s *Subscriber) { s.candidateMissingHandler = fn }
}

// OnRecordFailed sets the handler for RecordFailed events
func OnRecordFailed(fn func(RecordFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.recordFailedHandler = fn }
}

// OnSubmissionSucceeded sets the handler for SubmissionSucceeded events
func OnSubmissionSucceeded(fn func(SubmissionSucceeded)) func(*Subscriber) {
	return func(s *Subscriber) { s.submittedHandler = fn }
}

// OnSubmissionFailed sets the handler for SubmissionFailed events
func OnSubmissionFailed(fn func(SubmissionFailed)) func(*Subscriber) {
	return func(s *Subscriber) { s.submitFailedHandler = fn }
}

// OnUnbondingCompleted sets the handler for UnbondingCompleted events
func OnUnbondingCompleted(fn func(UnbondingCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.unbondingHandler = fn }
}

// OnPollingStarted sets the handler for PollingStarted events
func OnPollingStarted(fn func(PollingStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollStartedHandler = fn }
}

// OnPollingShutdown sets the handler for PollingShutdown events
func OnPollingShutdown(fn func(PollingShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollShutdownHandler = fn }
}

// NewSubscriber creates a Subscriber with the given options and starts the dispatch loop.
// Returns a closer function that waits for all events to be processed.
//
// Example:
//
//	feed := staking.NewFeed(64)
//	closer := staking.NewSubscriber(feed.Events(),
//	  staking.OnReconciled(func(e staking.Reconciled) { ... }),
//	)
//	defer closer()  // Ensures all events processed before exit
//	defer feed.Close()
//
// The subscriber processes events until the events channel closes.
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:                    make(chan struct{}),
		reconciledHandler:       func(Reconciled) {},          // nop by default
		discardedHandler:        func(ReconcileDiscarded) {},  // nop by default
		reconcileFailedHandler:  func(ReconcileFailed) {},     // nop by default
		candidateMissingHandler: func(CandidateMissing) {},    // nop by default
		recordFailedHandler:     func(RecordFailed) {},        // nop by default
		submittedHandler:        func(SubmissionSucceeded) {}, // nop by default
		submitFailedHandler:     func(SubmissionFailed) {},    // nop by default
		unbondingHandler:        func(UnbondingCompleted) {},  // nop by default
		pollStartedHandler:      func(PollingStarted) {},      // nop by default
		pollShutdownHandler:     func(PollingShutdown) {},     // nop by default
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case Reconciled:
				s.reconciledHandler(e)
			case ReconcileDiscarded:
				s.discardedHandler(e)
			case ReconcileFailed:
				s.reconcileFailedHandler(e)
			case CandidateMissing:
				s.candidateMissingHandler(e)
			case RecordFailed:
				s.recordFailedHandler(e)
			case SubmissionSucceeded:
				s.submittedHandler(e)
			case SubmissionFailed:
				s.submitFailedHandler(e)
			case UnbondingCompleted:
				s.unbondingHandler(e)
			case PollingStarted:
				s.pollStartedHandler(e)
			case PollingShutdown:
				s.pollShutdownHandler(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
