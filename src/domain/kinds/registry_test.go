package kinds_test

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"provenancegraph/src/domain"
	"provenancegraph/src/domain/entities"
	"provenancegraph/src/domain/kinds"
)

type taggedSample struct {
	tag string
}

func (t taggedSample) KindTag() string { return t.tag }

var _ = Describe("Registry", func() {
	var registry *kinds.Registry

	BeforeEach(func() {
		registry = kinds.NewRegistry()
	})

	Context("when registering kinds", func() {
		It("resolves the tag back to the registered type", func() {
			// ARRANGE
			registry.MustRegisterEntity("x-activity", entities.Activity{})

			// ACT
			resolved, err := registry.Resolve("x-activity")

			// ASSERT
			Expect(err).ToNot(HaveOccurred())
			Expect(resolved).To(Equal(reflect.TypeOf(entities.Activity{})))
		})

		It("treats pointers and values as the same type", func() {
			registry.MustRegister("x-user", &entities.User{})

			kind, err := registry.KindOf(entities.User{})

			Expect(err).ToNot(HaveOccurred())
			Expect(kind).To(Equal("x-user"))
		})

		It("accepts registering the same tag twice for the same type", func() {
			registry.MustRegister("x-user", entities.User{})

			Expect(registry.Register("x-user", entities.User{})).To(Succeed())
		})

		It("rejects a tag already bound to another type", func() {
			registry.MustRegister("x-user", entities.User{})

			err := registry.Register("x-user", entities.Activity{})

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("already registered"))
		})

		It("rejects an empty tag", func() {
			Expect(registry.Register("", entities.User{})).ToNot(Succeed())
		})

		It("panics on MustRegister conflicts", func() {
			registry.MustRegister("x-user", entities.User{})

			Expect(func() { registry.MustRegister("x-user", entities.FileVersion{}) }).To(Panic())
		})
	})

	Context("when resolving unknown kinds", func() {
		It("returns ErrUnknownKind from Resolve", func() {
			_, err := registry.Resolve("nope")

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})

		It("returns ErrUnknownKind from KindOf for an unregistered type", func() {
			_, err := registry.KindOf(entities.Activity{})

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})

		It("returns ErrUnknownKind from KindOf for nil", func() {
			_, err := registry.KindOf(nil)

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})
	})

	Context("when the value carries its own tag", func() {
		It("uses the instance tag when it is registered", func() {
			registry.MustRegister("x-one", taggedSample{})
			registry.MustRegister("x-two", taggedSample{})

			kind, err := registry.KindOf(taggedSample{tag: "x-two"})

			Expect(err).ToNot(HaveOccurred())
			Expect(kind).To(Equal("x-two"))
		})

		It("fails when the instance tag is unknown", func() {
			registry.MustRegister("x-one", taggedSample{})

			_, err := registry.KindOf(taggedSample{tag: "x-three"})

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})
	})

	Context("when distinguishing node kinds", func() {
		It("only reports kinds registered as entities", func() {
			registry.MustRegisterEntity("x-file", entities.FileVersion{})
			registry.MustRegister("x-relation", entities.Relation{})

			Expect(registry.IsEntityKind("x-file")).To(BeTrue())
			Expect(registry.IsEntityKind("x-relation")).To(BeFalse())
			Expect(registry.EntityKinds()).To(Equal([]string{"x-file"}))
		})

		It("labels nodes with the Go type name", func() {
			registry.MustRegisterEntity("x-file", entities.FileVersion{})

			label, err := registry.Label("x-file")

			Expect(err).ToNot(HaveOccurred())
			Expect(label).To(Equal("FileVersion"))
		})
	})

	Context("with the process-wide registry", func() {
		It("knows the four node kinds", func() {
			for _, kind := range []string{kinds.Activity, kinds.FileVersion, kinds.User, kinds.SoftwareAgent} {
				Expect(kinds.IsEntityKind(kind)).To(BeTrue(), kind)
			}
		})

		It("maps each concrete type to its kind", func() {
			Expect(kinds.KindOf(&entities.Activity{})).To(Equal(kinds.Activity))
			Expect(kinds.KindOf(entities.FileVersion{})).To(Equal(kinds.FileVersion))
			Expect(kinds.KindOf(entities.User{})).To(Equal(kinds.User))
			Expect(kinds.KindOf(entities.SoftwareAgent{})).To(Equal(kinds.SoftwareAgent))
		})

		It("rejects the bare entity row", func() {
			_, err := kinds.KindOf(entities.Entity{})

			Expect(err).To(MatchError(domain.ErrUnknownKind))
		})
	})
})
