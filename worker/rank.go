package worker

import (
	"context"
	"log"

	"github.com/WatchJani/K-means/protocol"
	"github.com/WatchJani/K-means/transport"
	"github.com/WatchJani/K-means/utils"
)

// RunRank serves the coordinator (rank 0) over the message-passing communicator until TERMINATE
func RunRank(ctx context.Context, comm transport.Comm, svc *Service) error {
	log.Printf("--> worker rank %d/%d waiting for commands", comm.Rank(), comm.Size())
	for {
		op, payload, err := transport.RecvCommand(ctx, comm)
		if err != nil {
			return err
		}
		cmd := op.Command()
		utils.Debugf("--> worker rank %d: %s (%d bytes)", comm.Rank(), cmd, len(payload))

		switch op {
		case protocol.OpTerminate:
			log.Printf("--> worker rank %d terminated", comm.Rank())
			return nil

		case protocol.OpNumber:
			// the barrier is the acknowledgment: it is entered even when loading failed
			if resp, _ := svc.Handle(cmd, string(payload)); resp != protocol.OK {
				log.Printf("--> worker rank %d: %s", comm.Rank(), resp)
			}
			if err = transport.Barrier(ctx, comm); err != nil {
				return err
			}

		default:
			resp, _ := svc.Handle(cmd, string(payload))
			if err = transport.SendResult(ctx, comm, []byte(resp)); err != nil {
				return err
			}
		}
	}
}
