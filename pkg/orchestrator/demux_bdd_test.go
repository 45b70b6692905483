package orchestrator_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	"github.com/thetacrypt/thetacrypt-go/pkg/instance"
	"github.com/thetacrypt/thetacrypt-go/pkg/orchestrator"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
	"github.com/thetacrypt/thetacrypt-go/pkg/transport"
)

// These specs exercise the demultiplexer's buffering and bounded-queue
// behavior under the seed scenario spec §8 S6 describes: a flood of
// messages for an instance that does not exist yet, followed by its
// creation.
var _ = Describe("Demultiplexer", func() {
	var (
		mgr   *orchestrator.Manager
		demux *orchestrator.Demultiplexer
	)

	BeforeEach(func() {
		mgr = orchestrator.NewManager(time.Minute)
	})

	Describe("buffering messages ahead of instance creation", func() {
		BeforeEach(func() {
			demux = orchestrator.NewDemultiplexer(mgr, time.Minute, 0)
		})

		It("buffers messages for an unknown instance id and drains them in arrival order once created", func() {
			const id = "instance-1"
			now := time.Now()
			for i := 0; i < 10; i++ {
				demux.Dispatch(transport.NetMessage{InstanceID: id, Payload: []byte{byte(i)}}, now)
			}
			Expect(demux.PendingIDs()).To(ConsistOf(id))

			inst, err := demux.CreateAndDrain(id, schemeid.Sg02, group.Ed25519)
			Expect(err).NotTo(HaveOccurred())
			Expect(demux.PendingIDs()).To(BeEmpty())

			for i := 0; i < 10; i++ {
				var msg transport.NetMessage
				Eventually(inst.Inbound).Should(Receive(&msg))
				Expect(msg.Payload).To(Equal([]byte{byte(i)}))
			}
		})

		It("drops pending entries once their TTL has expired", func() {
			demux = orchestrator.NewDemultiplexer(mgr, time.Millisecond, 0)
			const id = "instance-expired"
			past := time.Now().Add(-time.Hour)
			demux.Dispatch(transport.NetMessage{InstanceID: id}, past)
			Expect(demux.PendingIDs()).To(ConsistOf(id))

			// evictExpiredLocked only runs on the next Dispatch call; feed an
			// unrelated message to trigger the sweep.
			demux.Dispatch(transport.NetMessage{InstanceID: "other"}, time.Now())
			Expect(demux.PendingIDs()).To(ConsistOf("other"))

			inst, err := demux.CreateAndDrain(id, schemeid.Sg02, group.Ed25519)
			Expect(err).NotTo(HaveOccurred())
			Consistently(inst.Inbound).ShouldNot(Receive())
		})

		It("stops buffering once the total pending cap is reached", func() {
			demux = orchestrator.NewDemultiplexer(mgr, time.Minute, 3)
			now := time.Now()
			for i := 0; i < 10; i++ {
				demux.Dispatch(transport.NetMessage{InstanceID: "flood", Payload: []byte{byte(i)}}, now)
			}

			inst, err := demux.CreateAndDrain("flood", schemeid.Sg02, group.Ed25519)
			Expect(err).NotTo(HaveOccurred())

			delivered := 0
			for {
				select {
				case <-inst.Inbound:
					delivered++
				default:
					Expect(delivered).To(Equal(3))
					return
				}
			}
		})
	})

	Describe("an instance's bounded inbound queue", func() {
		It("drops the oldest queued message once its capacity is exceeded", func() {
			inst, err := mgr.Create("flood-running", schemeid.Sg02, group.Ed25519)
			Expect(err).NotTo(HaveOccurred())
			inst.Start(make(chan transport.NetMessage, 1))

			overflow := orchestrator.InboundQueueCap + 50
			for i := 0; i < overflow; i++ {
				inst.EnqueueInbound(transport.NetMessage{Payload: []byte{byte(i % 256)}})
			}

			Expect(len(inst.Inbound)).To(Equal(orchestrator.InboundQueueCap))
			Expect(inst.DroppedCount()).To(BeNumerically("==", overflow-orchestrator.InboundQueueCap))
		})
	})

	Describe("instance reuse", func() {
		It("refuses to create a second instance under the same id while the first is live", func() {
			demux = orchestrator.NewDemultiplexer(mgr, time.Minute, 0)
			_, err := demux.CreateAndDrain("dup", schemeid.Sg02, group.Ed25519)
			Expect(err).NotTo(HaveOccurred())

			_, err = demux.CreateAndDrain("dup", schemeid.Sg02, group.Ed25519)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Instance lifecycle", func() {
	It("closes its outbound channel and publishes its result exactly once", func() {
		inst := instance.New("once", schemeid.Bls04, group.Bls12381, 8)
		outbound := make(chan transport.NetMessage)
		inst.Start(outbound)

		go func() {
			inst.Finish(instance.Result{Value: []byte("done")})
			inst.Finish(instance.Result{Value: []byte("ignored, already finished")})
		}()

		Eventually(func() instance.Status { return inst.Status() }).Should(Equal(instance.Finished))
		_, stillOpen := <-outbound
		Expect(stillOpen).To(BeFalse())
		Expect(inst.AwaitResult().Value).To(Equal([]byte("done")))
	})
})
