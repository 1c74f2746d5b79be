package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/veloperf/internal/adapters/repository"
	"github.com/okian/veloperf/internal/domain/model"
	"github.com/okian/veloperf/internal/domain/scenario"
	. "github.com/smartystreets/goconvey/convey"
)

func pending(id string, at time.Time) model.Record {
	return model.Pending(model.Job{ID: id, EnqueuedAt: at})
}

func TestShardedStore(t *testing.T) {
	Convey("Given a sharded store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := repository.NewShardedStore(ctx, repository.WithShardCount(4), repository.WithMetricsUpdateInterval(time.Millisecond))
		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		Convey("When records are put and read back", func() {
			So(s.Put(ctx, pending("b", base.Add(time.Second))), ShouldBeNil)
			So(s.Put(ctx, pending("a", base)), ShouldBeNil)
			So(s.Put(ctx, pending("c", base.Add(time.Second))), ShouldBeNil)

			Convey("Then Get and Count see them", func() {
				rec, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusPending)
				So(s.Count(ctx), ShouldEqual, 3)
			})

			Convey("Then List orders by submission time then ID", func() {
				all, err := s.List(ctx, "", 0)
				So(err, ShouldBeNil)
				ids := []string{all[0].ID, all[1].ID, all[2].ID}
				So(ids, ShouldResemble, []string{"a", "b", "c"})

				two, err := s.List(ctx, "", 2)
				So(err, ShouldBeNil)
				So(two, ShouldHaveLength, 2)
			})

			Convey("Then List filters by status", func() {
				done := pending("b", base.Add(time.Second)).Complete(&scenario.Result{Power: 1}, nil, base)
				So(s.Put(ctx, done), ShouldBeNil)

				got, err := s.List(ctx, model.StatusDone, 0)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].ID, ShouldEqual, "b")
			})

			Convey("Then a pending write does not clobber a finished record", func() {
				done := pending("a", base).Complete(nil, errors.New("x"), base)
				So(s.Put(ctx, done), ShouldBeNil)
				So(s.Put(ctx, pending("a", base)), ShouldBeNil)

				rec, _ := s.Get(ctx, "a")
				So(rec.Status, ShouldEqual, model.StatusFailed)
			})
		})

		Convey("When reading what is not there", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.List(ctx, "", -1)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

			So(errors.Is(s.Put(ctx, model.Record{}), repository.ErrInvalidID), ShouldBeTrue)
		})

		Convey("When written concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						_ = s.Put(ctx, pending(fmt.Sprintf("job-%d-%d", i, j), base))
					}
				}(i)
			}
			wg.Wait()

			So(s.Count(ctx), ShouldEqual, 400)
		})
	})
}

func TestShardedStoreLimit(t *testing.T) {
	Convey("Given a single-shard store limited to three records", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s := repository.NewShardedStore(ctx, repository.WithShardCount(1), repository.WithMaxRecords(3))
		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		finished := func(id string) model.Record {
			return pending(id, base).Complete(nil, errors.New("x"), base)
		}

		Convey("When a fourth finished record arrives", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				So(s.Put(ctx, finished(id)), ShouldBeNil)
			}

			Convey("Then the oldest one is evicted", func() {
				So(s.Count(ctx), ShouldEqual, 3)
				_, err := s.Get(ctx, "a")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Get(ctx, "d")
				So(err, ShouldBeNil)
			})
		})

		Convey("When an existing record is updated at the limit", func() {
			for _, id := range []string{"a", "b", "c"} {
				So(s.Put(ctx, pending(id, base)), ShouldBeNil)
			}
			So(s.Put(ctx, finished("b")), ShouldBeNil)

			Convey("Then nothing is evicted", func() {
				So(s.Count(ctx), ShouldEqual, 3)
				rec, err := s.Get(ctx, "b")
				So(err, ShouldBeNil)
				So(rec.Status, ShouldEqual, model.StatusFailed)
			})
		})

		Convey("When only pending records fill the shard", func() {
			for _, id := range []string{"a", "b", "c", "d"} {
				So(s.Put(ctx, pending(id, base)), ShouldBeNil)
			}

			Convey("Then pending jobs are kept", func() {
				So(s.Count(ctx), ShouldEqual, 4)
			})
		})

		Convey("When pending and finished records are mixed", func() {
			So(s.Put(ctx, pending("a", base)), ShouldBeNil)
			So(s.Put(ctx, finished("b")), ShouldBeNil)
			So(s.Put(ctx, finished("c")), ShouldBeNil)
			So(s.Put(ctx, pending("d", base)), ShouldBeNil)

			Convey("Then the oldest finished record goes first", func() {
				_, err := s.Get(ctx, "b")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Get(ctx, "a")
				So(err, ShouldBeNil)
			})
		})
	})
}
