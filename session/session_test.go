package session

import (
	"net"
	"testing"
	"time"

	"github.com/Sforrego/mtgkingdoms-backend/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByPlayerID(t *testing.T) {
	manager := NewManager()

	sess1 := NewSession("session1", &MockConnection{})
	sess1.Bind("alice")

	sess2 := NewSession("session2", &MockConnection{})
	sess2.Bind("bob")

	sess3 := NewSession("session3", &MockConnection{})
	sess3.Bind("alice")

	manager.Add(sess1)
	manager.Add(sess2)
	manager.Add(sess3)

	if got := len(manager.GetByPlayerID("alice")); got != 2 {
		t.Errorf("Expected 2 sessions for alice, got %d", got)
	}
	if got := len(manager.GetByPlayerID("bob")); got != 1 {
		t.Errorf("Expected 1 session for bob, got %d", got)
	}
	if got := len(manager.GetByPlayerID("carol")); got != 0 {
		t.Errorf("Expected 0 sessions for carol, got %d", got)
	}
}

func TestManager_Stale(t *testing.T) {
	manager := NewManager()

	old := NewSession("old", &MockConnection{})
	old.lastActive = time.Now().Add(-time.Hour)
	fresh := NewSession("fresh", &MockConnection{})

	manager.Add(old)
	manager.Add(fresh)

	stale := manager.Stale(time.Now().Add(-time.Minute))
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("Expected only the old session to be stale, got %v", stale)
	}

	old.Touch()
	if len(manager.Stale(time.Now().Add(-time.Minute))) != 0 {
		t.Error("Touch should make the session active again")
	}
}
