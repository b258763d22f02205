package store

// MockStorage is a mock implementation of the Storage interface for testing
type MockStorage struct {
	WriteFunc  func(filename string, content []byte) error
	ReadFunc   func(filename string) ([]byte, error)
	ExistsFunc func(filename string) bool
	StatFunc   func(filename string) (Info, error)
	PathFunc   func(filename string) (string, error)
}

// Write implements Storage.Write
func (m *MockStorage) Write(filename string, content []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(filename, content)
	}
	return nil
}

// Read implements Storage.Read
func (m *MockStorage) Read(filename string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(filename)
	}
	return nil, ErrNotFound
}

// Exists implements Storage.Exists
func (m *MockStorage) Exists(filename string) bool {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(filename)
	}
	return false
}

// Stat implements Storage.Stat
func (m *MockStorage) Stat(filename string) (Info, error) {
	if m.StatFunc != nil {
		return m.StatFunc(filename)
	}
	return Info{}, ErrNotFound
}

// Path implements Storage.Path
func (m *MockStorage) Path(filename string) (string, error) {
	if m.PathFunc != nil {
		return m.PathFunc(filename)
	}
	return "/tmp/" + filename, nil
}
