package ecs

import (
	"reflect"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// worldEntitySlot is the slot every World reserves at construction for the
// "world entity" convenience singleton (spec.md §4.1). It is never handed
// out by CreateEntity.
const worldEntitySlot = EntityID(0)

var (
	worldRegistryMu sync.Mutex
	worldRegistry   = make([]*World, 1, 16) // index 0 unused: WorldID 0 is "unbound"
	freeWorldIDs    []WorldID
)

func registerWorld(w *World) WorldID {
	worldRegistryMu.Lock()
	defer worldRegistryMu.Unlock()
	if n := len(freeWorldIDs); n > 0 {
		id := freeWorldIDs[n-1]
		freeWorldIDs = freeWorldIDs[:n-1]
		worldRegistry[id] = w
		return id
	}
	worldRegistry = append(worldRegistry, w)
	return WorldID(len(worldRegistry) - 1)
}

func lookupWorld(id WorldID) *World {
	worldRegistryMu.Lock()
	defer worldRegistryMu.Unlock()
	if int(id) <= 0 || int(id) >= len(worldRegistry) {
		return nil
	}
	return worldRegistry[id]
}

func releaseWorldID(id WorldID) {
	worldRegistryMu.Lock()
	defer worldRegistryMu.Unlock()
	if int(id) > 0 && int(id) < len(worldRegistry) {
		worldRegistry[id] = nil
		freeWorldIDs = append(freeWorldIDs, id)
	}
}

// optimizable is implemented by query sets that defer expensive work (sort
// re-placement) until World.Optimize is called.
type optimizable interface {
	optimize()
}

// World is a process-registered container of entities, their component
// pools, and the publisher that keeps derived query-set indices in sync
// (spec.md §4.1). Pools, infos and the publisher belong to exactly one
// World; entity handles own nothing.
type World struct {
	id WorldID

	publisher *Publisher
	flags     *flagRegistry
	pools     *poolRegistry

	infos      []entityInfo
	freeList   []EntityID
	aliveCount int

	parentOf map[EntityID]EntityID
	childMap map[EntityID][]EntityID

	// aliveIDs tracks every live, non-reserved entity id as a compressed
	// bitmap (grounded on the pack's own RoaringBitmap usage for
	// membership sets), backing AliveEntities' world enumeration -- the
	// "world enumeration" collaborator spec.md §6 names as a serializer
	// input.
	aliveIDs *roaring.Bitmap

	maxEntities int

	optimizables []optimizable

	logger *zap.Logger
}

// Options configures NewWorld.
type Options struct {
	MaxEntities int
	Logger      *zap.Logger
}

// NewWorld registers a new world in the process-wide registry and
// allocates its reserved world-entity slot (spec.md §4.1/§4.2).
func NewWorld(opts Options) *World {
	if opts.MaxEntities <= 0 {
		opts.MaxEntities = 1 << 20
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &World{
		publisher:   NewPublisher(),
		flags:       newFlagRegistry(),
		pools:       newPoolRegistry(),
		maxEntities: opts.MaxEntities,
		logger:      logger,
		aliveIDs:    roaring.New(),
	}
	w.id = registerWorld(w)

	// Reserve slot 0 as the world entity. It is disabled by default so it
	// never satisfies ordinary query filters; it deliberately does not go
	// through CreateEntity's EntityCreated publish.
	w.infos = append(w.infos, entityInfo{version: 0, components: newComponentEnum()})
	w.aliveCount++

	logger.Info("world created", zap.Int16("world_id", int16(w.id)), zap.Int("max_entities", opts.MaxEntities))
	return w
}

// ID returns this world's process-registry id.
func (w *World) ID() WorldID { return w.id }

// Publisher returns the world's synchronous message bus.
func (w *World) Publisher() *Publisher { return w.publisher }

// Close releases the world's process-registry id. It does not dispose
// entities or publish further lifecycle messages.
func (w *World) Close() {
	releaseWorldID(w.id)
	w.logger.Info("world closed", zap.Int16("world_id", int16(w.id)))
}

func (w *World) worldEntity() Entity {
	return Entity{WorldID: w.id, EntityID: worldEntitySlot, Version: w.infos[worldEntitySlot].version}
}

func (w *World) isAlive(e Entity) bool {
	if e.WorldID != w.id {
		return false
	}
	if int(e.EntityID) >= len(w.infos) {
		return false
	}
	return w.infos[e.EntityID].version == e.Version
}

// checkHandle validates e against spec.md §7's ErrInvalidHandle rule.
// requireEnabledCheck is reserved for callers like Enable/Disable that
// spec.md always checks, vs. "most fast paths" which may skip it; this
// module validates on every call regardless (see DESIGN.md).
func (w *World) checkHandle(e Entity, requireEnabledCheck bool) error {
	if e.WorldID == 0 {
		return errors.Wrapf(ErrInvalidHandle, "%v", e)
	}
	if e.WorldID != w.id {
		return errors.Wrapf(ErrInvalidHandle, "%v belongs to world %d, not %d", e, e.WorldID, w.id)
	}
	if !w.isAlive(e) {
		return errors.Wrapf(ErrInvalidHandle, "%v is not alive", e)
	}
	return nil
}

func (w *World) setComponentFlag(e EntityID, flag uint) {
	w.infos[e].components.Set(flag)
}

func (w *World) clearComponentFlag(e EntityID, flag uint) {
	w.infos[e].components.Clear(flag)
}

// CreateEntity allocates a slot (reusing a freed one if available),
// marks it enabled, and publishes EntityCreated. Fails with ErrWorldFull
// once the world's live entity count reaches MaxEntities.
func (w *World) CreateEntity() (Entity, error) {
	if w.aliveCount >= w.maxEntities+1 { // +1 for the reserved world entity
		return Default, errors.Wrapf(ErrWorldFull, "world %d", w.id)
	}

	var id EntityID
	if n := len(w.freeList); n > 0 {
		id = w.freeList[n-1]
		w.freeList = w.freeList[:n-1]
	} else {
		id = EntityID(len(w.infos))
		w.infos = append(w.infos, entityInfo{version: 0})
	}

	w.infos[id].components = newComponentEnum()
	w.infos[id].parents = nil
	w.infos[id].components.Set(enabledFlag)
	w.aliveCount++
	w.aliveIDs.Add(uint32(id))

	e := Entity{WorldID: w.id, EntityID: id, Version: w.infos[id].version}
	Publish(w.publisher, EntityCreated{Entity: e})
	return e, nil
}

// DisposeEntity publishes EntityDisposing then EntityDisposed, bumps the
// slot's version (skipping the -1 sentinel), and returns it to the free
// list. Disposing an already-disposed or invalid handle is a silent
// no-op, per spec.md §7. Any live children (see SetParent) are disposed
// first, depth-first.
func (w *World) DisposeEntity(e Entity) {
	if e.WorldID != w.id || !w.isAlive(e) {
		return
	}

	for _, child := range w.childrenOf(e.EntityID) {
		childHandle := Entity{WorldID: w.id, EntityID: child, Version: w.infos[child].version}
		if w.isAlive(childHandle) {
			w.DisposeEntity(childHandle)
		}
	}

	Publish(w.publisher, EntityDisposing{Entity: e})
	Publish(w.publisher, EntityDisposed{Entity: e})

	w.infos[e.EntityID].version = versionAfter(e.Version)
	w.infos[e.EntityID].components = nil
	w.infos[e.EntityID].parents = nil
	delete(w.childMap, e.EntityID)
	if p, ok := w.parentOf[e.EntityID]; ok {
		w.removeChildEdge(p, e.EntityID)
		delete(w.parentOf, e.EntityID)
	}
	w.aliveCount--
	w.aliveIDs.Remove(uint32(e.EntityID))
	w.freeList = append(w.freeList, e.EntityID)
}

// AliveEntities returns every live entity in the world (excluding the
// reserved world entity), in ascending slot order. Backs the "world
// enumeration" collaborator spec.md §6 describes for serializer clients.
func (w *World) AliveEntities() []Entity {
	out := make([]Entity, 0, w.aliveIDs.GetCardinality())
	it := w.aliveIDs.Iterator()
	for it.HasNext() {
		id := EntityID(it.Next())
		out = append(out, Entity{WorldID: w.id, EntityID: id, Version: w.infos[id].version})
	}
	return out
}

// SetParent records a hierarchical relationship: disposing parent will
// depth-first dispose child first. This supplements spec.md §3's
// EntityInfo.parents field, which the distillation names but never wires
// to an operation.
func (w *World) SetParent(child, parent Entity) error {
	if err := w.checkHandle(child, false); err != nil {
		return err
	}
	if err := w.checkHandle(parent, false); err != nil {
		return err
	}
	if w.parentOf == nil {
		w.parentOf = make(map[EntityID]EntityID)
		w.childMap = make(map[EntityID][]EntityID)
	}
	if old, ok := w.parentOf[child.EntityID]; ok {
		w.removeChildEdge(old, child.EntityID)
	}
	w.parentOf[child.EntityID] = parent.EntityID
	w.childMap[parent.EntityID] = append(w.childMap[parent.EntityID], child.EntityID)

	info := &w.infos[child.EntityID]
	if info.parents == nil {
		info.parents = newBitsetIndex()
	}
	info.parents.Set(uint(parent.EntityID))
	return nil
}

// RemoveParent severs a previously-set parent/child edge without
// disposing either entity.
func (w *World) RemoveParent(child Entity) {
	p, ok := w.parentOf[child.EntityID]
	if !ok {
		return
	}
	w.removeChildEdge(p, child.EntityID)
	delete(w.parentOf, child.EntityID)
	if int(child.EntityID) < len(w.infos) && w.infos[child.EntityID].parents != nil {
		w.infos[child.EntityID].parents.Clear(uint(p))
	}
}

func (w *World) removeChildEdge(parent, child EntityID) {
	children := w.childMap[parent]
	for i, c := range children {
		if c == child {
			w.childMap[parent] = append(children[:i], children[i+1:]...)
			break
		}
	}
}

func (w *World) childrenOf(e EntityID) []EntityID {
	if w.childMap == nil {
		return nil
	}
	out := make([]EntityID, len(w.childMap[e]))
	copy(out, w.childMap[e])
	return out
}

// Enable sets the reserved enabled flag, publishing EntityEnabled if it
// flipped. Always handle-checked, per spec.md §7.
func (w *World) Enable(e Entity) error {
	if err := w.checkHandle(e, true); err != nil {
		return err
	}
	info := &w.infos[e.EntityID]
	if info.components.IsEnabled() {
		return nil
	}
	info.components.Set(enabledFlag)
	Publish(w.publisher, EntityEnabled{Entity: e})
	return nil
}

// Disable clears the reserved enabled flag, publishing EntityDisabled if
// it flipped. Always handle-checked, per spec.md §7.
func (w *World) Disable(e Entity) error {
	if err := w.checkHandle(e, true); err != nil {
		return err
	}
	info := &w.infos[e.EntityID]
	if !info.components.IsEnabled() {
		return nil
	}
	info.components.Clear(enabledFlag)
	Publish(w.publisher, EntityDisabled{Entity: e})
	return nil
}

// IsEnabled reports the entity's enabled flag.
func (w *World) IsEnabled(e Entity) bool {
	if !w.isAlive(e) {
		return false
	}
	return w.infos[e.EntityID].components.IsEnabled()
}

// Set attaches or overwrites T on the world entity (slot 0), the shared
// singleton convenience of spec.md §4.1.
func Set[T any](w *World, v T) error {
	_, err := poolFor[T](w).Set(w.worldEntity(), v)
	return err
}

// Get returns a pointer to T on the world entity. Undefined if Has[T]
// is false.
func Get[T any](w *World) *T {
	return poolFor[T](w).Get(w.worldEntity())
}

// Has reports whether the world entity carries T.
func Has[T any](w *World) bool {
	return poolFor[T](w).Has(w.worldEntity())
}

// Remove detaches T from the world entity.
func Remove[T any](w *World) {
	_ = poolFor[T](w).Remove(w.worldEntity())
}

// SetMaxComponentCount bounds pool[T]'s capacity. Idempotent before the
// pool has any data; has no effect on an already-populated pool.
func SetMaxComponentCount[T any](w *World, n uint32) error {
	return poolFor[T](w).setMaxComponentCount(n)
}

// ReadAllComponentTypes invokes reader.OnReadType once per registered
// pool (spec.md §4.1), regardless of whether any entity currently holds
// the type.
func (w *World) ReadAllComponentTypes(reader TypeReader) {
	if reader == nil {
		return
	}
	Publish(w.publisher, ComponentTypeRead{Reader: reader})
}

// ReadAllComponents invokes reader.OnRead once per component the entity
// currently carries (spec.md §6's component-reader callback).
func (w *World) ReadAllComponents(e Entity, reader Reader) {
	if reader == nil {
		return
	}
	Publish(w.publisher, ComponentRead{Entity: e, Reader: reader})
}

// CopyTo clones every component src carries onto dst by publishing
// EntityCopy; each pool's default handler calls dst.Set[T](src.Get[T]())
// unless a ComponentCloner overrides it. If any handler fails or panics,
// dst is disposed (rollback) before the error propagates (spec.md §4.6,
// §7).
func (w *World) CopyTo(src, dst Entity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.DisposeEntity(dst)
			err = errors.Errorf("ecs: CopyTo(%v, %v) panicked: %v", src, dst, r)
		} else if err != nil {
			w.DisposeEntity(dst)
		}
	}()
	Publish(w.publisher, EntityCopy{Src: src, Dst: dst, Err: &err})
	return err
}

// Optimize triggers deferred index maintenance (currently:
// EntitySortedSet re-placement) on every query set registered against
// this world (spec.md §4.1/§4.5).
func (w *World) Optimize() {
	for _, o := range w.optimizables {
		o.optimize()
	}
}

func (w *World) registerOptimizable(o optimizable) {
	w.optimizables = append(w.optimizables, o)
}

// forEachPool walks every registered pool without exposing poolRegistry
// directly.
func (w *World) forEachPool(fn func(erasedPool)) {
	for _, p := range w.pools.all() {
		fn(p)
	}
}

// PoolAccessor is the type-erased façade onto a component pool, exported
// for client packages (the serializer) that resolve a component by its
// reflect.Type rather than a compile-time type parameter.
type PoolAccessor interface {
	Has(e Entity) bool
	SetAny(e Entity, v any) error
	SetSameAsAny(e, ref Entity) error
	GetAny(e Entity) any
	MaxComponentCount() uint32
	SetMaxComponentCountAny(n uint32) error
}

// PoolByType returns the registered pool for t, if any component of that
// type has ever been read, written, or registered in this world.
func (w *World) PoolByType(t reflect.Type) (PoolAccessor, bool) {
	p, ok := w.pools.get(t)
	return p, ok
}

// MaxEntityCount reports the capacity this world was constructed with.
func (w *World) MaxEntityCount() int { return w.maxEntities }

// EnsurePool returns (creating if necessary) the type-erased pool for T in
// w. Client packages that resolve components by reflect.Type (the
// serializer) call this once per registered type so PoolByType can find it
// later, since pools are otherwise created lazily on first Set[T]/Get[T].
func EnsurePool[T any](w *World) PoolAccessor {
	return poolFor[T](w)
}
