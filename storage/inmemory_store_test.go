package storage_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/lodestone/storage"
)

var _ = Describe("storage / InmemoryStore", func() {
	var store *storage.InmemoryStore

	BeforeEach(func() {
		store = storage.NewInmemoryStore()
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Close()", func() {
		It("does not panic when closed twice", func() {
			Expect(func() { store.Close() }).NotTo(Panic())
			Expect(func() { store.Close() }).NotTo(Panic())
		})

		It("closes the update channels", func() {
			updateChan := store.ListenToUpdates()
			Expect(store.Close()).To(Succeed())

			Eventually(updateChan).Should(BeClosed())
		})

		It("refuses writes afterwards", func() {
			Expect(store.Close()).To(Succeed())
			Expect(store.Set(context.Background(), "foo", 1)).To(MatchError(storage.ErrClosed))
		})
	})

	It("an empty inmemory store equals {}", func() {
		value, err := store.Backup()
		Expect(err).To(Succeed())
		Expect(string(value)).To(Equal(`{}`))
	})

	Describe("Set() / Get()", func() {
		It("can read a key that is written", func() {
			Expect(store.Set(context.Background(), "foo", "bar")).To(Succeed())
			Expect(store.Get(context.Background(), "foo")).To(Equal([]byte(`"bar"`)))

			value, err := store.Backup()
			Expect(err).To(Succeed())
			Expect(string(value)).To(Equal(`{"foo":"bar"}`))
		})

		It("creates nested objects along a path", func() {
			ctx := context.Background()
			Expect(store.Set(ctx, "players.abc.name", "Steve")).To(Succeed())
			Expect(store.Set(ctx, "players.abc.brand", "vanilla")).To(Succeed())

			Expect(store.Get(ctx, "players.abc")).To(MatchJSON(`{"name":"Steve","brand":"vanilla"}`))
		})

		It("returns nil for a missing key", func() {
			Expect(store.Get(context.Background(), "nope")).To(BeNil())
		})

		It("sends on the update channel when values are set", func() {
			updateChan := store.ListenToUpdates()
			Expect(store.Set(context.Background(), "foo", "bar")).To(Succeed())

			var update *storage.Update
			Eventually(updateChan).Should(Receive(&update))
			Expect(update).To(Equal(&storage.Update{
				Key:   "foo",
				Value: []byte(`"bar"`),
			}))
		})

		It("gives up on a full listener when the context ends", func() {
			store.ListenToUpdates()

			for i := 0; i < storage.UpdateBufferSize; i++ {
				Expect(store.Set(context.Background(), "foo", i)).To(Succeed())
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			Expect(store.Set(ctx, "foo", "late")).To(MatchError(context.DeadlineExceeded))
		})
	})

	Describe("Delete()", func() {
		It("removes the key and tells listeners", func() {
			ctx := context.Background()
			Expect(store.Set(ctx, "players.abc", map[string]string{"name": "Steve"})).To(Succeed())

			updateChan := store.ListenToUpdates()
			Expect(store.Delete(ctx, "players.abc")).To(Succeed())

			var update *storage.Update
			Eventually(updateChan).Should(Receive(&update))
			Expect(update.Key).To(Equal("players.abc"))
			Expect(update.Deleted()).To(BeTrue())

			Expect(store.Get(ctx, "players.abc")).To(BeNil())
		})

		It("is silent for a missing key", func() {
			updateChan := store.ListenToUpdates()
			Expect(store.Delete(context.Background(), "nope")).To(Succeed())

			Consistently(updateChan, 50*time.Millisecond).ShouldNot(Receive())
		})
	})

	Describe("Restore()", func() {
		It("replaces the document", func() {
			Expect(store.Restore([]byte(`{"foo":{"bar":1}}`))).To(Succeed())
			Expect(store.Get(context.Background(), "foo.bar")).To(Equal([]byte(`1`)))
		})

		It("rejects something that is not JSON", func() {
			Expect(store.Restore([]byte(`{"foo":`))).To(MatchError(storage.ErrInvalidBackup))
		})
	})
})
